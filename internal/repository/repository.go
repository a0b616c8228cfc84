package repository

import (
	"context"

	"github.com/kwypchlo/demo-product-review-system/internal/domain"
	"github.com/kwypchlo/demo-product-review-system/internal/query"
	"github.com/kwypchlo/demo-product-review-system/pkg/pagination"
)

// ProductListOptions defines ordering and filtering for product listings.
type ProductListOptions struct {
	Order  query.OrderSpec
	Filter *query.FilterSpec
}

// ReviewListOptions defines the scope, ordering and filtering for review
// listings. ProductID is required.
type ReviewListOptions struct {
	ProductID string
	Order     query.OrderSpec
	Filter    *query.FilterSpec
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns all products matching the given options, fully ordered.
	List(ctx context.Context, opts ProductListOptions) ([]domain.Product, error)

	// ListPage returns up to limit products past the cursor position.
	ListPage(ctx context.Context, opts ProductListOptions, limit int, cursor *pagination.Cursor) ([]domain.Product, error)
}

// ReviewRepository defines the interface for review persistence operations.
// Create and Delete run in a transaction that also recomputes the owning
// product's rating and review_count aggregates.
type ReviewRepository interface {
	// Create inserts a review and recomputes the product aggregates in one
	// transaction. Returns NOT_FOUND when the product does not exist and
	// ALREADY_EXISTS when the author already reviewed the product.
	Create(ctx context.Context, review *domain.Review) error

	// Delete removes the review when it exists and belongs to authorID, and
	// recomputes the product aggregates in the same transaction. Returns the
	// owning product id, or NOT_FOUND when no such review is visible to the
	// caller.
	Delete(ctx context.Context, id, authorID string) (productID string, err error)

	// List returns all reviews matching the given options with their authors.
	List(ctx context.Context, opts ReviewListOptions) ([]domain.ReviewWithAuthor, error)

	// ListPage returns up to limit reviews past the cursor position.
	ListPage(ctx context.Context, opts ReviewListOptions, limit int, cursor *pagination.Cursor) ([]domain.ReviewWithAuthor, error)

	// ListByAuthor returns the author's reviews of a product, newest first.
	ListByAuthor(ctx context.Context, productID, authorID string) ([]domain.ReviewWithAuthor, error)

	// ListNewest returns the newest reviews of a product with their authors.
	ListNewest(ctx context.Context, productID string, limit int) ([]domain.ReviewWithAuthor, error)
}

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by its identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// SessionRepository defines the interface for session persistence operations.
type SessionRepository interface {
	// Create inserts a new session into the store.
	Create(ctx context.Context, session *domain.Session) error

	// GetByToken retrieves a session by its bearer token.
	GetByToken(ctx context.Context, token string) (*domain.Session, error)

	// DeleteExpired removes sessions past their expiry and reports how many.
	DeleteExpired(ctx context.Context) (int64, error)
}
