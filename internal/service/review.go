package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kwypchlo/demo-product-review-system/internal/domain"
	"github.com/kwypchlo/demo-product-review-system/internal/query"
	"github.com/kwypchlo/demo-product-review-system/internal/repository"
	apperrors "github.com/kwypchlo/demo-product-review-system/pkg/errors"
	"github.com/kwypchlo/demo-product-review-system/pkg/pagination"
)

// DefaultReviewPageSize is the page size used when the caller does not
// request one.
const DefaultReviewPageSize = 20

// EventPublisher publishes review domain events after a mutation commits.
type EventPublisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
	PublishReviewDeleted(ctx context.Context, reviewID, productID, authorID string) error
}

// CreateReviewInput holds the parameters for submitting a review.
type CreateReviewInput struct {
	ProductID string
	AuthorID  string
	Rating    int
	Content   string
}

// ReviewPage is one page of a cursor-paginated review listing. NextCursor is
// nil exactly when this is the last page.
type ReviewPage struct {
	Reviews    []domain.ReviewWithAuthor
	NextCursor *pagination.Cursor
}

// ReviewService implements the business logic for review queries and
// mutations.
type ReviewService struct {
	reviews repository.ReviewRepository
	events  EventPublisher
	logger  *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(reviews repository.ReviewRepository, events EventPublisher, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		events:  events,
		logger:  logger,
	}
}

func reviewListOptions(productID string, input ListOptionsInput) (repository.ReviewListOptions, error) {
	if productID == "" {
		return repository.ReviewListOptions{}, apperrors.InvalidInput("product id is required")
	}

	order, err := query.Reviews.ParseOrder(input.OrderBy, input.OrderDir)
	if err != nil {
		return repository.ReviewListOptions{}, err
	}

	filter, err := query.Reviews.ParseFilter(input.FilterBy, input.FilterOp, input.FilterValue)
	if err != nil {
		return repository.ReviewListOptions{}, err
	}

	return repository.ReviewListOptions{ProductID: productID, Order: order, Filter: filter}, nil
}

func reviewOrderKey(r domain.ReviewWithAuthor, field string) any {
	switch field {
	case "rating":
		return r.Rating
	default:
		return r.Date
	}
}

// ListReviews returns all reviews of a product matching the given options.
func (s *ReviewService) ListReviews(ctx context.Context, productID string, input ListOptionsInput) ([]domain.ReviewWithAuthor, error) {
	opts, err := reviewListOptions(productID, input)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	return reviews, nil
}

// ListReviewsPage returns one page of a product's reviews. The next cursor
// is derived from the last row of the page and present exactly when the page
// is full.
func (s *ReviewService) ListReviewsPage(ctx context.Context, productID string, input ListOptionsInput, page pagination.Params) (*ReviewPage, error) {
	opts, err := reviewListOptions(productID, input)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.ListPage(ctx, opts, page.Limit, page.Cursor)
	if err != nil {
		return nil, fmt.Errorf("list reviews page: %w", err)
	}

	var next *pagination.Cursor
	if len(reviews) == page.Limit {
		last := reviews[len(reviews)-1]
		next = &pagination.Cursor{
			OrderKey: reviewOrderKey(last, opts.Order.Field),
			ID:       last.ID,
		}
	}

	return &ReviewPage{Reviews: reviews, NextCursor: next}, nil
}

// ListMyReviews returns the authenticated caller's reviews of a product,
// newest first.
func (s *ReviewService) ListMyReviews(ctx context.Context, productID, userID string) ([]domain.ReviewWithAuthor, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	reviews, err := s.reviews.ListByAuthor(ctx, productID, userID)
	if err != nil {
		return nil, fmt.Errorf("list own reviews: %w", err)
	}

	return reviews, nil
}

// CreateReview submits a review on behalf of the authenticated caller. The
// store enforces one review per user per product and keeps the product
// aggregates exact within the same transaction.
func (s *ReviewService) CreateReview(ctx context.Context, input CreateReviewInput) (*domain.Review, error) {
	if input.AuthorID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Rating < domain.MinRating || input.Rating > domain.MaxRating {
		return nil, apperrors.InvalidInput("rating must be an integer between 1 and 5")
	}
	if contentLen := utf8.RuneCountInString(input.Content); contentLen == 0 || contentLen > domain.MaxContentLength {
		return nil, apperrors.InvalidInput(
			fmt.Sprintf("content must be between 1 and %d characters", domain.MaxContentLength))
	}

	review := &domain.Review{
		ID:        uuid.New().String(),
		ProductID: input.ProductID,
		AuthorID:  input.AuthorID,
		Rating:    input.Rating,
		Content:   input.Content,
		Date:      time.Now().UTC(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.Int("rating", review.Rating),
	)

	// Best effort: the review is committed, a publish failure must not
	// surface to the caller.
	if err := s.events.PublishReviewCreated(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	return review, nil
}

// DeleteReview removes the caller's review. A review that does not exist and
// a review owned by someone else are indistinguishable to the caller; both
// fail NOT_FOUND.
func (s *ReviewService) DeleteReview(ctx context.Context, id, userID string) error {
	if userID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	if id == "" {
		return apperrors.InvalidInput("review id is required")
	}

	productID, err := s.reviews.Delete(ctx, id, userID)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", id),
		slog.String("product_id", productID),
	)

	if err := s.events.PublishReviewDeleted(ctx, id, productID, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", id),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
