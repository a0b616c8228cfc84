package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kwypchlo/demo-product-review-system/internal/service"
	"github.com/kwypchlo/demo-product-review-system/pkg/health"
	"github.com/kwypchlo/demo-product-review-system/pkg/middleware"
)

// ContentTypeJSON sets the JSON content type on every response.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	productService *service.ProductService,
	reviewService *service.ReviewService,
	validateSession middleware.SessionValidator,
	healthHandler *health.Handler,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("review-service"))

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	productHandler := NewProductHandler(productService, logger)
	reviewHandler := NewReviewHandler(reviewService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/page", productHandler.ListProductsPage)
			r.Get("/{id}", productHandler.GetProduct)

			r.Route("/{id}/reviews", func(r chi.Router) {
				r.Get("/", reviewHandler.ListReviews)
				r.Get("/page", reviewHandler.ListReviewsPage)

				// Authenticated review endpoints
				r.Group(func(r chi.Router) {
					r.Use(middleware.Auth(validateSession))

					r.Get("/mine", reviewHandler.ListMyReviews)
					r.Post("/", reviewHandler.CreateReview)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validateSession))

			r.Delete("/reviews/{id}", reviewHandler.DeleteReview)
		})
	})

	return r
}
