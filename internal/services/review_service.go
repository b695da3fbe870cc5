package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	domain "github.com/ordercraft/api/internal/domain"
	"github.com/ordercraft/api/internal/platform/events"
	"github.com/ordercraft/api/internal/platform/requestctx"
	"github.com/ordercraft/api/internal/repositories"
)

const maxReviewCommentLength = 2000

var (
	// ErrReviewInvalidInput indicates validation failures for review operations.
	ErrReviewInvalidInput = errors.New("review: invalid input")
	// ErrReviewDuplicate indicates the user already reviewed the product.
	ErrReviewDuplicate = errors.New("review: already exists")
	// ErrReviewPurchaseNotVerified indicates the user has no delivered order with the product.
	ErrReviewPurchaseNotVerified = errors.New("review: purchase not verified")
	// ErrReviewProductNotFound indicates the reviewed product does not exist.
	ErrReviewProductNotFound = errors.New("review: product not found")
)

// ReviewServiceDeps bundles collaborators required to construct a ReviewService.
type ReviewServiceDeps struct {
	Reviews   repositories.ReviewRepository
	Users     repositories.UserRepository
	Clock     func() time.Time
	Sanitizer func(string) string
	Events    events.Publisher
}

type reviewService struct {
	reviews  repositories.ReviewRepository
	users    repositories.UserRepository
	clock    func() time.Time
	sanitize func(string) string
	events   events.Publisher
}

var _ ReviewService = (*reviewService)(nil)

// NewReviewService wires dependencies into a concrete ReviewService implementation.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("review service: user repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	sanitize := deps.Sanitizer
	if sanitize == nil {
		policy := bluemonday.StrictPolicy()
		sanitize = func(input string) string {
			return strings.TrimSpace(policy.Sanitize(input))
		}
	}
	publisher := deps.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &reviewService{
		reviews: deps.Reviews,
		users:   deps.Users,
		clock: func() time.Time {
			return clock().UTC()
		},
		sanitize: sanitize,
		events:   publisher,
	}, nil
}

func (s *reviewService) Create(ctx context.Context, cmd CreateReviewCommand) (Review, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return Review{}, fmt.Errorf("%w: user id is required", ErrReviewInvalidInput)
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		return Review{}, fmt.Errorf("%w: product id is required", ErrReviewInvalidInput)
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewInvalidInput)
	}

	comment := s.sanitize(cmd.Comment)
	if len(comment) > maxReviewCommentLength {
		return Review{}, fmt.Errorf("%w: comment exceeds %d characters", ErrReviewInvalidInput, maxReviewCommentLength)
	}

	now := s.clock()
	result, err := s.reviews.Create(ctx, domain.Review{
		UserID:    strings.TrimSpace(cmd.UserID),
		ProductID: strings.TrimSpace(cmd.ProductID),
		Rating:    cmd.Rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Review{}, s.mapReviewError(err)
	}

	s.emitReviewEvent(ctx, result.Review)

	return result.Review, nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productID string, pager Pagination) (domain.CursorPage[Review], error) {
	if strings.TrimSpace(productID) == "" {
		return domain.CursorPage[Review]{}, fmt.Errorf("%w: product id is required", ErrReviewInvalidInput)
	}
	page, err := s.reviews.ListByProduct(ctx, productID, pager)
	if err != nil {
		return domain.CursorPage[Review]{}, s.mapReviewError(err)
	}
	s.enrichReviewers(ctx, page.Items)
	return page, nil
}

// enrichReviewers fills reviewer display names. A missing profile leaves the
// name empty rather than failing the listing.
func (s *reviewService) enrichReviewers(ctx context.Context, reviews []domain.Review) {
	cache := make(map[string]string)
	for i := range reviews {
		userID := reviews[i].UserID
		name, ok := cache[userID]
		if !ok {
			profile, err := s.users.Get(ctx, userID)
			if err != nil {
				cache[userID] = ""
				continue
			}
			name = profile.DisplayName
			cache[userID] = name
		}
		reviews[i].ReviewerName = name
	}
}

func (s *reviewService) emitReviewEvent(ctx context.Context, review domain.Review) {
	_, err := s.events.PublishReviewEvent(ctx, events.ReviewEvent{
		Event:      events.EventReviewCreated,
		ReviewID:   review.ID,
		ProductID:  review.ProductID,
		UserID:     review.UserID,
		Rating:     review.Rating,
		OccurredAt: s.clock(),
	})
	if err != nil {
		requestctx.Logger(ctx).Warn("review event publish failed",
			zap.String("review_id", review.ID),
			zap.Error(err),
		)
	}
}

func (s *reviewService) mapReviewError(err error) error {
	if err == nil {
		return nil
	}
	var reviewErr *repositories.ReviewError
	if errors.As(err, &reviewErr) {
		switch reviewErr.Code {
		case repositories.ReviewErrorDuplicate:
			return fmt.Errorf("%w: %s", ErrReviewDuplicate, reviewErr.Message)
		case repositories.ReviewErrorPurchaseNotVerified:
			return fmt.Errorf("%w: %s", ErrReviewPurchaseNotVerified, reviewErr.Message)
		case repositories.ReviewErrorProductNotFound:
			return fmt.Errorf("%w: %s", ErrReviewProductNotFound, reviewErr.Message)
		}
	}
	return err
}
