package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kwypchlo/demo-product-review-system/internal/domain"
	"github.com/kwypchlo/demo-product-review-system/internal/query"
	"github.com/kwypchlo/demo-product-review-system/internal/repository"
	"github.com/kwypchlo/demo-product-review-system/pkg/pagination"
)

// DefaultProductPageSize is the page size used when the caller does not
// request one.
const DefaultProductPageSize = 50

// ListOptionsInput carries the raw ordering and filtering parameters of a
// list request. Validation happens against the entity allow-lists before any
// store access.
type ListOptionsInput struct {
	OrderBy     string
	OrderDir    string
	FilterBy    string
	FilterOp    string
	FilterValue int
}

// ProductPage is one page of a cursor-paginated product listing. NextCursor
// is nil exactly when this is the last page.
type ProductPage struct {
	Products   []domain.Product
	NextCursor *pagination.Cursor
}

// ProductService implements the business logic for product queries.
type ProductService struct {
	products repository.ProductRepository
	reviews  repository.ReviewRepository
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(products repository.ProductRepository, reviews repository.ReviewRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		products: products,
		reviews:  reviews,
		logger:   logger,
	}
}

func productListOptions(input ListOptionsInput) (repository.ProductListOptions, error) {
	order, err := query.Products.ParseOrder(input.OrderBy, input.OrderDir)
	if err != nil {
		return repository.ProductListOptions{}, err
	}

	filter, err := query.Products.ParseFilter(input.FilterBy, input.FilterOp, input.FilterValue)
	if err != nil {
		return repository.ProductListOptions{}, err
	}

	return repository.ProductListOptions{Order: order, Filter: filter}, nil
}

func productOrderKey(p domain.Product, field string) any {
	switch field {
	case "rating":
		return p.Rating
	case "reviewCount":
		return p.ReviewCount
	default:
		return p.Name
	}
}

// ListProducts returns all products matching the given options, fully
// ordered.
func (s *ProductService) ListProducts(ctx context.Context, input ListOptionsInput) ([]domain.Product, error) {
	opts, err := productListOptions(input)
	if err != nil {
		return nil, err
	}

	products, err := s.products.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

// ListProductsPage returns one page of products. The next cursor is derived
// from the last row of the page and present exactly when the page is full;
// a short page means the listing is exhausted.
func (s *ProductService) ListProductsPage(ctx context.Context, input ListOptionsInput, page pagination.Params) (*ProductPage, error) {
	opts, err := productListOptions(input)
	if err != nil {
		return nil, err
	}

	products, err := s.products.ListPage(ctx, opts, page.Limit, page.Cursor)
	if err != nil {
		return nil, fmt.Errorf("list products page: %w", err)
	}

	var next *pagination.Cursor
	if len(products) == page.Limit {
		last := products[len(products)-1]
		next = &pagination.Cursor{
			OrderKey: productOrderKey(last, opts.Order.Field),
			ID:       last.ID,
		}
	}

	return &ProductPage{Products: products, NextCursor: next}, nil
}

// GetProductByID returns the product together with a preview of its newest
// reviews and their authors.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*domain.ProductDetail, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.ListNewest(ctx, id, domain.ProductPreviewMax)
	if err != nil {
		return nil, fmt.Errorf("list newest reviews: %w", err)
	}

	return &domain.ProductDetail{Product: *product, Reviews: reviews}, nil
}
