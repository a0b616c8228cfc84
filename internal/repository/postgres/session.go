package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kwypchlo/demo-product-review-system/internal/domain"
	"github.com/kwypchlo/demo-product-review-system/pkg/database"
	apperrors "github.com/kwypchlo/demo-product-review-system/pkg/errors"
)

// SessionRepository implements session persistence operations using PostgreSQL.
type SessionRepository struct {
	pool database.DBTX
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(pool database.DBTX) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new session into the database.
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	sql := `
		INSERT INTO sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, sql, session.Token, session.UserID, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByToken retrieves a session by its bearer token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	sql := `SELECT token, user_id, expires_at FROM sessions WHERE token = $1`

	var s domain.Session
	err := r.pool.QueryRow(ctx, sql, token).Scan(&s.Token, &s.UserID, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Unauthorized("session not found")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &s, nil
}

// DeleteExpired removes sessions past their expiry and reports how many.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}
