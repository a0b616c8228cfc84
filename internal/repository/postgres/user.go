package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kwypchlo/demo-product-review-system/internal/domain"
	"github.com/kwypchlo/demo-product-review-system/pkg/database"
	apperrors "github.com/kwypchlo/demo-product-review-system/pkg/errors"
)

// UserRepository implements user persistence operations using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	sql := `
		INSERT INTO users (id, name, email, image, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, sql,
		user.ID,
		user.Name,
		user.Email,
		user.Image,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.AlreadyExists("user", "id", user.ID)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by its identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	sql := `SELECT id, name, email, image, created_at FROM users WHERE id = $1`

	var u domain.User
	err := r.pool.QueryRow(ctx, sql, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Image,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}
