package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/kwypchlo/demo-product-review-system/internal/domain"
	"github.com/kwypchlo/demo-product-review-system/internal/repository"
	"github.com/kwypchlo/demo-product-review-system/pkg/pagination"
)

// --- Mock Repositories ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, opts repository.ProductListOptions) ([]domain.Product, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListPage(ctx context.Context, opts repository.ProductListOptions, limit int, cursor *pagination.Cursor) ([]domain.Product, error) {
	args := m.Called(ctx, opts, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id, authorID string) (string, error) {
	args := m.Called(ctx, id, authorID)
	return args.String(0), args.Error(1)
}

func (m *mockReviewRepository) List(ctx context.Context, opts repository.ReviewListOptions) ([]domain.ReviewWithAuthor, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewWithAuthor), args.Error(1)
}

func (m *mockReviewRepository) ListPage(ctx context.Context, opts repository.ReviewListOptions, limit int, cursor *pagination.Cursor) ([]domain.ReviewWithAuthor, error) {
	args := m.Called(ctx, opts, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewWithAuthor), args.Error(1)
}

func (m *mockReviewRepository) ListByAuthor(ctx context.Context, productID, authorID string) ([]domain.ReviewWithAuthor, error) {
	args := m.Called(ctx, productID, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewWithAuthor), args.Error(1)
}

func (m *mockReviewRepository) ListNewest(ctx context.Context, productID string, limit int) ([]domain.ReviewWithAuthor, error) {
	args := m.Called(ctx, productID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewWithAuthor), args.Error(1)
}

// --- Mock Event Publisher ---

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockEventPublisher) PublishReviewDeleted(ctx context.Context, reviewID, productID, authorID string) error {
	args := m.Called(ctx, reviewID, productID, authorID)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testProduct(id, name string, rating float64, reviewCount int) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        name,
		Slug:        "slug-" + id,
		Rating:      rating,
		ReviewCount: reviewCount,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testReviewWithAuthor(id string, rating int, date time.Time) domain.ReviewWithAuthor {
	return domain.ReviewWithAuthor{
		Review: domain.Review{
			ID:        id,
			ProductID: "prod-1",
			AuthorID:  "user-1",
			Rating:    rating,
			Content:   "content",
			Date:      date,
		},
		Author: domain.User{ID: "user-1", Name: "Ada Lovelace", Email: "ada@example.com"},
	}
}
