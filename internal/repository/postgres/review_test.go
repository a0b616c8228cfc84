package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwypchlo/demo-product-review-system/internal/domain"
	"github.com/kwypchlo/demo-product-review-system/internal/query"
	"github.com/kwypchlo/demo-product-review-system/internal/repository"
	"github.com/kwypchlo/demo-product-review-system/pkg/database"
	apperrors "github.com/kwypchlo/demo-product-review-system/pkg/errors"
	"github.com/kwypchlo/demo-product-review-system/pkg/pagination"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupReviewRepo(t *testing.T) (*ReviewRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewReviewRepository(mock)
	return repo, mock
}

func sampleReview() *domain.Review {
	return &domain.Review{
		ID:        "5f0c3a45-2f3e-4a57-9f67-0af3a1a1b001",
		ProductID: "e9a1b9a0-8a57-4f6e-b6cd-0af3a1a1c001",
		AuthorID:  "user-001",
		Rating:    4,
		Content:   "Solid build, arrived on time.",
		Date:      time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func reviewJoinColumns() []string {
	return []string{
		"id", "product_id", "author_id", "rating", "content", "date",
		"u_id", "u_name", "u_email", "u_image", "u_created_at",
	}
}

func reviewJoinRows(reviews ...domain.ReviewWithAuthor) *pgxmock.Rows {
	rows := pgxmock.NewRows(reviewJoinColumns())
	for _, rv := range reviews {
		rows.AddRow(
			rv.ID, rv.ProductID, rv.AuthorID, rv.Rating, rv.Content, rv.Date,
			rv.Author.ID, rv.Author.Name, rv.Author.Email, rv.Author.Image, rv.Author.CreatedAt,
		)
	}
	return rows
}

func sampleReviewWithAuthor(id string, rating int, date time.Time) domain.ReviewWithAuthor {
	return domain.ReviewWithAuthor{
		Review: domain.Review{
			ID:        id,
			ProductID: "e9a1b9a0-8a57-4f6e-b6cd-0af3a1a1c001",
			AuthorID:  "user-001",
			Rating:    rating,
			Content:   "content",
			Date:      date,
		},
		Author: domain.User{
			ID:        "user-001",
			Name:      "Ada Lovelace",
			Email:     "ada@example.com",
			Image:     "",
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestReviewRepository_Create_Success(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM products WHERE id = .+ FOR UPDATE").
		WithArgs(rv.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(rv.ProductID))
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rv.ID, rv.ProductID, rv.AuthorID, rv.Rating, rv.Content, rv.Date).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE products").
		WithArgs(rv.ProductID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), rv)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_ProductNotFound(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM products WHERE id = .+ FOR UPDATE").
		WithArgs(rv.ProductID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), rv)
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_DuplicateReview(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM products WHERE id = .+ FOR UPDATE").
		WithArgs(rv.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(rv.ProductID))
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rv.ID, rv.ProductID, rv.AuthorID, rv.Rating, rv.Content, rv.Date).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "reviews_product_author_unique"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), rv)
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_AggregateUpdateError(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM products WHERE id = .+ FOR UPDATE").
		WithArgs(rv.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(rv.ProductID))
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rv.ID, rv.ProductID, rv.AuthorID, rv.Rating, rv.Content, rv.Date).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE products").
		WithArgs(rv.ProductID).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), rv)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "update product aggregates")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestReviewRepository_Delete_Success(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM reviews").
		WithArgs(rv.ID, rv.AuthorID).
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}).AddRow(rv.ProductID))
	mock.ExpectQuery("SELECT id FROM products WHERE id = .+ FOR UPDATE").
		WithArgs(rv.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(rv.ProductID))
	mock.ExpectExec("UPDATE products").
		WithArgs(rv.ProductID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	productID, err := repo.Delete(context.Background(), rv.ID, rv.AuthorID)
	require.NoError(t, err)
	assert.Equal(t, rv.ProductID, productID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Delete_NotFoundOrNotOwned(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReview()

	// The same path covers an absent review and someone else's review; the
	// DELETE matches zero rows either way.
	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM reviews").
		WithArgs(rv.ID, "other-user").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	productID, err := repo.Delete(context.Background(), rv.ID, "other-user")
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, productID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

func TestReviewRepository_List_OrdersByRatingWithDateTieBreak(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	now := time.Now().UTC()
	first := sampleReviewWithAuthor("r1", 5, now)
	second := sampleReviewWithAuthor("r2", 4, now.Add(-time.Hour))

	order, err := query.Reviews.ParseOrder("rating", "desc")
	require.NoError(t, err)

	mock.ExpectQuery(`ORDER BY r\.rating DESC, r\.date DESC`).
		WithArgs(first.ProductID).
		WillReturnRows(reviewJoinRows(first, second))

	reviews, err := repo.List(context.Background(), repository.ReviewListOptions{
		ProductID: first.ProductID,
		Order:     order,
	})
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "r1", reviews[0].ID)
	assert.Equal(t, "Ada Lovelace", reviews[0].Author.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListPage_WithCursorAndFilter(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	now := time.Now().UTC()
	rv := sampleReviewWithAuthor("r3", 4, now)

	order, err := query.Reviews.ParseOrder("date", "desc")
	require.NoError(t, err)
	filter, err := query.Reviews.ParseFilter("rating", "gte", 3)
	require.NoError(t, err)

	cursorDate := now.Add(time.Hour)
	cursor := &pagination.Cursor{OrderKey: cursorDate, ID: "r2"}

	mock.ExpectQuery(`ORDER BY r\.date DESC, r\.id DESC LIMIT`).
		WithArgs(rv.ProductID, 3, cursorDate, "r2", 20).
		WillReturnRows(reviewJoinRows(rv))

	reviews, err := repo.ListPage(context.Background(), repository.ReviewListOptions{
		ProductID: rv.ProductID,
		Order:     order,
		Filter:    filter,
	}, 20, cursor)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "r3", reviews[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListPage_RatingOrderSortsByIDOnly(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReviewWithAuthor("r1", 4, time.Now().UTC())

	order, err := query.Reviews.ParseOrder("rating", "desc")
	require.NoError(t, err)

	cursor := &pagination.Cursor{OrderKey: 4, ID: "r5"}

	// The date tie-break must not appear in paged rating queries; the keyset
	// predicate only knows (rating, id), so sorting by date in between would
	// skip or repeat rows across pages.
	mock.ExpectQuery(`\(r\.rating < .+ OR \(r\.rating = .+ AND r\.id < .+\)\) ORDER BY r\.rating DESC, r\.id DESC LIMIT`).
		WithArgs(rv.ProductID, 4, "r5", 20).
		WillReturnRows(reviewJoinRows(rv))

	reviews, err := repo.ListPage(context.Background(), repository.ReviewListOptions{
		ProductID: rv.ProductID,
		Order:     order,
	}, 20, cursor)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListNewest_Empty(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	mock.ExpectQuery(`ORDER BY r\.date DESC LIMIT`).
		WithArgs("p1", 3).
		WillReturnRows(pgxmock.NewRows(reviewJoinColumns()))

	reviews, err := repo.ListNewest(context.Background(), "p1", 3)
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListByAuthor(t *testing.T) {
	repo, mock := setupReviewRepo(t)
	defer mock.Close()

	rv := sampleReviewWithAuthor("r1", 5, time.Now().UTC())

	mock.ExpectQuery(`WHERE r\.product_id = .+ AND r\.author_id = .+ ORDER BY r\.date DESC`).
		WithArgs(rv.ProductID, rv.AuthorID).
		WillReturnRows(reviewJoinRows(rv))

	reviews, err := repo.ListByAuthor(context.Background(), rv.ProductID, rv.AuthorID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, rv.AuthorID, reviews[0].AuthorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
