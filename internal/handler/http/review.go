package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kwypchlo/demo-product-review-system/internal/service"
	"github.com/kwypchlo/demo-product-review-system/pkg/httputil"
	"github.com/kwypchlo/demo-product-review-system/pkg/middleware"
	"github.com/kwypchlo/demo-product-review-system/pkg/pagination"
	"github.com/kwypchlo/demo-product-review-system/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for submitting a review.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Content string `json:"content" validate:"required,max=360"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/products/{id}/reviews
// @Summary List product reviews
// @Description Returns all reviews of a product with their authors
// @Tags reviews
// @Produce json
// @Param id path string true "Product UUID"
// @Param order_by query string false "Order field: date, rating" default(date)
// @Param order_dir query string false "Order direction: asc, desc" default(desc)
// @Param filter_by query string false "Filter field (rating only)"
// @Param filter_op query string false "Filter comparison: gte, lte, eq"
// @Param filter_value query int false "Filter value (1-5)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/products/{id}/reviews [get]
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, productID); !ok {
		return
	}

	input, ok := listOptionsFromRequest(w, r)
	if !ok {
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), productID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: reviews})
}

// ListReviewsPage handles GET /api/v1/products/{id}/reviews/page
// @Summary List one page of product reviews
// @Description Returns up to limit reviews past the cursor position
// @Tags reviews
// @Produce json
// @Param id path string true "Product UUID"
// @Param limit query int false "Page size (max 100)" default(20)
// @Param cursor query string false "Opaque cursor from a previous page"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/products/{id}/reviews/page [get]
func (h *ReviewHandler) ListReviewsPage(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, productID); !ok {
		return
	}

	input, ok := listOptionsFromRequest(w, r)
	if !ok {
		return
	}

	params, err := pagination.FromRequest(r, service.DefaultReviewPageSize)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "malformed cursor"},
		})
		return
	}

	page, err := h.service.ListReviewsPage(r.Context(), productID, input, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	next, ok := encodeCursor(w, r, page.NextCursor, h.logger)
	if !ok {
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewCursorPage(page.Reviews, next))
}

// ListMyReviews handles GET /api/v1/products/{id}/reviews/mine
// @Summary List the caller's reviews of a product
// @Tags reviews
// @Produce json
// @Param id path string true "Product UUID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/products/{id}/reviews/mine [get]
func (h *ReviewHandler) ListMyReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, productID); !ok {
		return
	}

	userID := middleware.UserIDFromContext(r.Context())

	reviews, err := h.service.ListMyReviews(r.Context(), productID, userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: reviews})
}

// CreateReview handles POST /api/v1/products/{id}/reviews
// @Summary Submit a product review
// @Description Submits a review. One review per user per product.
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path string true "Product UUID"
// @Param request body CreateReviewRequest true "Review to submit"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/products/{id}/reviews [post]
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, productID); !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.CreateReviewInput{
		ProductID: productID,
		AuthorID:  middleware.UserIDFromContext(r.Context()),
		Rating:    req.Rating,
		Content:   req.Content,
	}

	review, err := h.service.CreateReview(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/reviews/{id}
// @Summary Delete the caller's review
// @Description Deletes a review the caller owns. A review that does not exist and one owned by someone else both return 404.
// @Tags reviews
// @Produce json
// @Param id path string true "Review UUID"
// @Success 204
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/reviews/{id} [delete]
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}

	userID := middleware.UserIDFromContext(r.Context())

	if err := h.service.DeleteReview(r.Context(), id, userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
