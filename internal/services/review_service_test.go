package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/ordercraft/api/internal/domain"
	"github.com/ordercraft/api/internal/platform/events"
	"github.com/ordercraft/api/internal/repositories"
)

type fakeReviewRepository struct {
	created   domain.Review
	createErr error
	listPage  domain.CursorPage[domain.Review]
	listErr   error
}

func (f *fakeReviewRepository) Create(ctx context.Context, review domain.Review) (repositories.ReviewCreateResult, error) {
	f.created = review
	if f.createErr != nil {
		return repositories.ReviewCreateResult{}, f.createErr
	}
	stored := review
	stored.ID = review.UserID + "_" + review.ProductID
	return repositories.ReviewCreateResult{
		Review:  stored,
		Product: domain.Product{ID: review.ProductID, AverageRating: float64(review.Rating), ReviewsCount: 1},
	}, nil
}

func (f *fakeReviewRepository) ListByProduct(ctx context.Context, productID string, pager domain.Pagination) (domain.CursorPage[domain.Review], error) {
	return f.listPage, f.listErr
}

type fakeUserRepository struct {
	profiles map[string]domain.UserProfile
	upserted []domain.UserProfile
}

func (f *fakeUserRepository) Get(ctx context.Context, userID string) (domain.UserProfile, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return domain.UserProfile{}, notFoundError{msg: "user not found"}
}

func (f *fakeUserRepository) Upsert(ctx context.Context, profile domain.UserProfile) error {
	f.upserted = append(f.upserted, profile)
	if f.profiles == nil {
		f.profiles = map[string]domain.UserProfile{}
	}
	f.profiles[profile.ID] = profile
	return nil
}

func TestReviewServiceCreateSanitisesComment(t *testing.T) {
	repo := &fakeReviewRepository{}
	publisher := &recordingPublisher{}
	now := time.Date(2024, time.June, 2, 9, 0, 0, 0, time.UTC)

	svc, err := NewReviewService(ReviewServiceDeps{
		Reviews: repo,
		Users:   &fakeUserRepository{},
		Clock:   func() time.Time { return now },
		Events:  publisher,
	})
	if err != nil {
		t.Fatalf("NewReviewService: %v", err)
	}

	review, err := svc.Create(context.Background(), CreateReviewCommand{
		UserID:    "u_1",
		ProductID: "prd_1",
		Rating:    5,
		Comment:   "  <script>alert(1)</script>great keyboard  ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if repo.created.Comment != "great keyboard" {
		t.Fatalf("expected sanitised comment, got %q", repo.created.Comment)
	}
	if repo.created.CreatedAt != now {
		t.Fatalf("expected clock time %s, got %s", now, repo.created.CreatedAt)
	}
	if review.ID != "u_1_prd_1" {
		t.Fatalf("unexpected review id %s", review.ID)
	}
	if len(publisher.reviewEvents) != 1 || publisher.reviewEvents[0].Event != events.EventReviewCreated {
		t.Fatalf("expected review.created event, got %+v", publisher.reviewEvents)
	}
}

func TestReviewServiceCreateValidation(t *testing.T) {
	svc, err := NewReviewService(ReviewServiceDeps{
		Reviews: &fakeReviewRepository{},
		Users:   &fakeUserRepository{},
	})
	if err != nil {
		t.Fatalf("NewReviewService: %v", err)
	}

	cases := []CreateReviewCommand{
		{ProductID: "prd_1", Rating: 3},
		{UserID: "u_1", Rating: 3},
		{UserID: "u_1", ProductID: "prd_1", Rating: 0},
		{UserID: "u_1", ProductID: "prd_1", Rating: 6},
	}
	for i, cmd := range cases {
		if _, err := svc.Create(context.Background(), cmd); !errors.Is(err, ErrReviewInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestReviewServiceCreateMapsRepositoryErrors(t *testing.T) {
	cases := []struct {
		repoErr error
		want    error
	}{
		{repositories.NewReviewError(repositories.ReviewErrorDuplicate, "dup", nil), ErrReviewDuplicate},
		{repositories.NewReviewError(repositories.ReviewErrorPurchaseNotVerified, "not delivered", nil), ErrReviewPurchaseNotVerified},
		{repositories.NewReviewError(repositories.ReviewErrorProductNotFound, "missing", nil), ErrReviewProductNotFound},
	}
	for i, tc := range cases {
		repo := &fakeReviewRepository{createErr: tc.repoErr}
		svc, err := NewReviewService(ReviewServiceDeps{Reviews: repo, Users: &fakeUserRepository{}})
		if err != nil {
			t.Fatalf("NewReviewService: %v", err)
		}
		_, err = svc.Create(context.Background(), CreateReviewCommand{UserID: "u_1", ProductID: "prd_1", Rating: 4})
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestReviewServiceListByProductEnrichesNames(t *testing.T) {
	repo := &fakeReviewRepository{
		listPage: domain.CursorPage[domain.Review]{
			Items: []domain.Review{
				{ID: "u_named_prd_1", UserID: "u_named", ProductID: "prd_1", Rating: 5},
				{ID: "u_ghost_prd_1", UserID: "u_ghost", ProductID: "prd_1", Rating: 2},
			},
		},
	}
	users := &fakeUserRepository{
		profiles: map[string]domain.UserProfile{
			"u_named": {ID: "u_named", DisplayName: "Named User"},
		},
	}
	svc, err := NewReviewService(ReviewServiceDeps{Reviews: repo, Users: users})
	if err != nil {
		t.Fatalf("NewReviewService: %v", err)
	}

	page, err := svc.ListByProduct(context.Background(), "prd_1", Pagination{PageSize: 10})
	if err != nil {
		t.Fatalf("ListByProduct: %v", err)
	}
	if page.Items[0].ReviewerName != "Named User" {
		t.Fatalf("expected reviewer name, got %q", page.Items[0].ReviewerName)
	}
	if page.Items[1].ReviewerName != "" {
		t.Fatalf("expected empty name for missing profile, got %q", page.Items[1].ReviewerName)
	}
}
