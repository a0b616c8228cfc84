package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kwypchlo/demo-product-review-system/internal/domain"
	"github.com/kwypchlo/demo-product-review-system/internal/query"
	"github.com/kwypchlo/demo-product-review-system/internal/repository"
	"github.com/kwypchlo/demo-product-review-system/pkg/database"
	apperrors "github.com/kwypchlo/demo-product-review-system/pkg/errors"
	"github.com/kwypchlo/demo-product-review-system/pkg/pagination"
)

const (
	reviewColumns = `r.id, r.product_id, r.author_id, r.rating, r.content, r.date,
	       u.id, u.name, u.email, u.image, u.created_at`
	reviewFrom = `FROM reviews r JOIN users u ON u.id = r.author_id`
)

// ReviewRepository implements review persistence operations using PostgreSQL.
// The mutating operations keep the owning product's rating and review_count
// aggregates exact by recomputing them inside the same transaction.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a review and recomputes the product aggregates in one
// transaction. The product row is locked first, which both validates
// existence and serializes concurrent recomputes on the same product.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create review: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var productID string
	err = tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, review.ProductID).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("product", review.ProductID)
		}
		return fmt.Errorf("lock product: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO reviews (id, product_id, author_id, rating, content, date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID,
		review.ProductID,
		review.AuthorID,
		review.Rating,
		review.Content,
		review.Date,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.AlreadyExists("review", "product_id", review.ProductID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	// Full recompute of the mean, never incremental.
	_, err = tx.Exec(ctx, `
		UPDATE products
		SET review_count = review_count + 1,
		    rating = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = $1)
		WHERE id = $1`,
		review.ProductID,
	)
	if err != nil {
		return fmt.Errorf("update product aggregates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create review: %w", err)
	}

	return nil
}

// Delete removes the review when it belongs to authorID and recomputes the
// product aggregates in the same transaction. Absence and foreign ownership
// both surface as NOT_FOUND; the caller cannot tell them apart.
func (r *ReviewRepository) Delete(ctx context.Context, id, authorID string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin delete review: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var productID string
	err = tx.QueryRow(ctx, `
		DELETE FROM reviews
		WHERE id = $1 AND author_id = $2
		RETURNING product_id`,
		id, authorID,
	).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("review", id)
		}
		return "", fmt.Errorf("delete review: %w", err)
	}

	var lockedID string
	err = tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&lockedID)
	if err != nil {
		return "", fmt.Errorf("lock product: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE products
		SET review_count = review_count - 1,
		    rating = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = $1)
		WHERE id = $1`,
		productID,
	)
	if err != nil {
		return "", fmt.Errorf("update product aggregates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit delete review: %w", err)
	}

	return productID, nil
}

// List returns all reviews matching the given options with their authors.
func (r *ReviewRepository) List(ctx context.Context, opts repository.ReviewListOptions) ([]domain.ReviewWithAuthor, error) {
	b := query.NewBuilder().
		Equal("r.product_id", opts.ProductID).
		Filter(query.Reviews, opts.Filter)

	sql := fmt.Sprintf(`SELECT %s %s %s %s`,
		reviewColumns, reviewFrom, b.Where(), query.Reviews.OrderBy(opts.Order, false))

	return r.queryReviews(ctx, sql, b.Args())
}

// ListPage returns up to limit reviews past the cursor position.
func (r *ReviewRepository) ListPage(ctx context.Context, opts repository.ReviewListOptions, limit int, cursor *pagination.Cursor) ([]domain.ReviewWithAuthor, error) {
	b := query.NewBuilder().
		Equal("r.product_id", opts.ProductID).
		Filter(query.Reviews, opts.Filter)
	if cursor != nil {
		b.Keyset(query.Reviews, opts.Order, cursor.OrderKey, cursor.ID)
	}

	sql := fmt.Sprintf(`SELECT %s %s %s %s LIMIT $%d`,
		reviewColumns, reviewFrom, b.Where(), query.Reviews.OrderBy(opts.Order, true), len(b.Args())+1)
	args := append(b.Args(), limit)

	return r.queryReviews(ctx, sql, args)
}

// ListByAuthor returns the author's reviews of a product, newest first.
func (r *ReviewRepository) ListByAuthor(ctx context.Context, productID, authorID string) ([]domain.ReviewWithAuthor, error) {
	sql := fmt.Sprintf(`SELECT %s %s WHERE r.product_id = $1 AND r.author_id = $2 ORDER BY r.date DESC`,
		reviewColumns, reviewFrom)

	return r.queryReviews(ctx, sql, []any{productID, authorID})
}

// ListNewest returns the newest reviews of a product with their authors.
func (r *ReviewRepository) ListNewest(ctx context.Context, productID string, limit int) ([]domain.ReviewWithAuthor, error) {
	sql := fmt.Sprintf(`SELECT %s %s WHERE r.product_id = $1 ORDER BY r.date DESC LIMIT $2`,
		reviewColumns, reviewFrom)

	return r.queryReviews(ctx, sql, []any{productID, limit})
}

func (r *ReviewRepository) queryReviews(ctx context.Context, sql string, args []any) ([]domain.ReviewWithAuthor, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.ReviewWithAuthor
	for rows.Next() {
		var rv domain.ReviewWithAuthor
		if err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.AuthorID,
			&rv.Rating,
			&rv.Content,
			&rv.Date,
			&rv.Author.ID,
			&rv.Author.Name,
			&rv.Author.Email,
			&rv.Author.Image,
			&rv.Author.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.ReviewWithAuthor{}
	}

	return reviews, nil
}
