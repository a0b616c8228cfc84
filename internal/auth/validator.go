package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kwypchlo/demo-product-review-system/internal/domain"
	apperrors "github.com/kwypchlo/demo-product-review-system/pkg/errors"
)

// SessionStore is the subset of session persistence the validator needs.
type SessionStore interface {
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
}

// Validator resolves bearer session tokens to user identities against the
// sessions table, with an optional Redis read-through cache in front of it.
type Validator struct {
	sessions SessionStore
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithCache enables a Redis read-through cache for token lookups. The cached
// entry TTL is capped by the session expiry, so a cached session can never
// outlive the real one.
func WithCache(client *redis.Client, ttl time.Duration) Option {
	return func(v *Validator) {
		v.cache = client
		v.cacheTTL = ttl
	}
}

// NewValidator creates a session validator backed by the given store.
func NewValidator(sessions SessionStore, logger *slog.Logger, opts ...Option) *Validator {
	v := &Validator{
		sessions: sessions,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func cacheKey(token string) string {
	return "session:" + token
}

// ValidateToken resolves a session token to the owning user's id. Expired or
// unknown tokens fail with an unauthorized error.
func (v *Validator) ValidateToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperrors.Unauthorized("missing session token")
	}

	if v.cache != nil {
		userID, err := v.cache.Get(ctx, cacheKey(token)).Result()
		if err == nil && userID != "" {
			return userID, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			// Cache trouble falls through to the store.
			v.logger.WarnContext(ctx, "session cache lookup failed",
				slog.String("error", err.Error()),
			)
		}
	}

	session, err := v.sessions.GetByToken(ctx, token)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if session.Expired(now) {
		return "", apperrors.Unauthorized("session expired")
	}

	if v.cache != nil {
		ttl := v.cacheTTL
		if remaining := session.ExpiresAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
		if err := v.cache.Set(ctx, cacheKey(token), session.UserID, ttl).Err(); err != nil {
			v.logger.WarnContext(ctx, "session cache store failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return session.UserID, nil
}

// Sweep deletes expired sessions. Intended to run periodically from the
// application lifecycle.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RunSweeper deletes expired sessions every interval until the context is
// canceled.
func RunSweeper(ctx context.Context, store Sweeper, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "session sweep failed",
					slog.String("error", fmt.Sprintf("%v", err)),
				)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "expired sessions removed", slog.Int64("count", n))
			}
		}
	}
}
