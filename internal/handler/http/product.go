package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kwypchlo/demo-product-review-system/internal/service"
	"github.com/kwypchlo/demo-product-review-system/pkg/httputil"
	"github.com/kwypchlo/demo-product-review-system/pkg/pagination"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// listOptionsFromRequest extracts the shared ordering and filtering query
// parameters. Returns false when it already wrote an error response.
func listOptionsFromRequest(w http.ResponseWriter, r *http.Request) (service.ListOptionsInput, bool) {
	q := r.URL.Query()
	input := service.ListOptionsInput{
		OrderBy:  q.Get("order_by"),
		OrderDir: q.Get("order_dir"),
		FilterBy: q.Get("filter_by"),
		FilterOp: q.Get("filter_op"),
	}

	if input.FilterBy != "" {
		v, err := strconv.Atoi(q.Get("filter_value"))
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "filter_value must be an integer"},
			})
			return service.ListOptionsInput{}, false
		}
		input.FilterValue = v
	}

	return input, true
}

// encodeCursor renders an optional next cursor as an opaque token. Returns
// false when it already wrote an error response.
func encodeCursor(w http.ResponseWriter, r *http.Request, c *pagination.Cursor, logger *slog.Logger) (*string, bool) {
	if c == nil {
		return nil, true
	}
	token, err := c.Encode()
	if err != nil {
		httputil.WriteError(w, r, err, logger)
		return nil, false
	}
	return &token, true
}

// ListProducts handles GET /api/v1/products
// @Summary List products
// @Description Returns all products ordered by the requested field
// @Tags products
// @Produce json
// @Param order_by query string false "Order field: name, rating, reviewCount" default(name)
// @Param order_dir query string false "Order direction: asc, desc" default(asc)
// @Param filter_by query string false "Filter field (rating only)"
// @Param filter_op query string false "Filter comparison: gte, lte, eq"
// @Param filter_value query int false "Filter value (1-5)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/products [get]
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	input, ok := listOptionsFromRequest(w, r)
	if !ok {
		return
	}

	products, err := h.service.ListProducts(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// ListProductsPage handles GET /api/v1/products/page
// @Summary List one page of products
// @Description Returns up to limit products past the cursor position
// @Tags products
// @Produce json
// @Param limit query int false "Page size (max 100)" default(50)
// @Param cursor query string false "Opaque cursor from a previous page"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/products/page [get]
func (h *ProductHandler) ListProductsPage(w http.ResponseWriter, r *http.Request) {
	input, ok := listOptionsFromRequest(w, r)
	if !ok {
		return
	}

	params, err := pagination.FromRequest(r, service.DefaultProductPageSize)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "malformed cursor"},
		})
		return
	}

	page, err := h.service.ListProductsPage(r.Context(), input, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	next, ok := encodeCursor(w, r, page.NextCursor, h.logger)
	if !ok {
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewCursorPage(page.Products, next))
}

// GetProduct handles GET /api/v1/products/{id}
// @Summary Get a product
// @Description Returns the product with a preview of its newest reviews
// @Tags products
// @Produce json
// @Param id path string true "Product UUID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products/{id} [get]
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}

	detail, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}
