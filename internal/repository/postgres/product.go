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

const productColumns = "id, name, slug, description, image, rating, review_count, created_at"

// ProductRepository implements product persistence operations using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	sql := `
		INSERT INTO products (id, name, slug, description, image, rating, review_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, sql,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Image,
		product.Rating,
		product.ReviewCount,
		product.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.AlreadyExists("product", "slug", product.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its unique identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	sql := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	var p domain.Product
	err := r.pool.QueryRow(ctx, sql, id).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Image,
		&p.Rating,
		&p.ReviewCount,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// List returns all products matching the given options, fully ordered.
func (r *ProductRepository) List(ctx context.Context, opts repository.ProductListOptions) ([]domain.Product, error) {
	b := query.NewBuilder().Filter(query.Products, opts.Filter)

	sql := fmt.Sprintf(`SELECT %s FROM products %s %s`,
		productColumns, b.Where(), query.Products.OrderBy(opts.Order, false))

	return r.queryProducts(ctx, sql, b.Args())
}

// ListPage returns up to limit products past the cursor position.
func (r *ProductRepository) ListPage(ctx context.Context, opts repository.ProductListOptions, limit int, cursor *pagination.Cursor) ([]domain.Product, error) {
	b := query.NewBuilder().Filter(query.Products, opts.Filter)
	if cursor != nil {
		b.Keyset(query.Products, opts.Order, cursor.OrderKey, cursor.ID)
	}

	sql := fmt.Sprintf(`SELECT %s FROM products %s %s LIMIT $%d`,
		productColumns, b.Where(), query.Products.OrderBy(opts.Order, true), len(b.Args())+1)
	args := append(b.Args(), limit)

	return r.queryProducts(ctx, sql, args)
}

func (r *ProductRepository) queryProducts(ctx context.Context, sql string, args []any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Slug,
			&p.Description,
			&p.Image,
			&p.Rating,
			&p.ReviewCount,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, nil
}
