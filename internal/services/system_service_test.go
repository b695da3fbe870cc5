package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/ordercraft/api/internal/domain"
)

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubHealthRepository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func TestSystemServiceHealthReportEnrichesMetadata(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(5 * time.Minute)
	repo := &stubHealthRepository{
		report: domain.SystemHealthReport{
			Status: domain.HealthStatusOK,
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
			},
		},
	}

	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: repo,
		Clock:            func() time.Time { return now },
		Build: BuildInfo{
			Version:     "1.2.3",
			CommitSHA:   "abc123",
			Environment: "prod",
			StartedAt:   start,
		},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport: %v", err)
	}

	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected status ok, got %s", report.Status)
	}
	if report.Version != "1.2.3" || report.CommitSHA != "abc123" || report.Environment != "prod" {
		t.Fatalf("expected build metadata, got %+v", report)
	}
	if report.Uptime != now.Sub(start) {
		t.Fatalf("expected uptime %s, got %s", now.Sub(start), report.Uptime)
	}
	if report.GeneratedAt != now {
		t.Fatalf("expected generatedAt %s, got %s", now, report.GeneratedAt)
	}
}

func TestSystemServiceHealthReportErrors(t *testing.T) {
	expected := errors.New("collect failed")
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepository{err: expected},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	if _, err := svc.HealthReport(context.Background()); !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}

func TestNewSystemServiceRequiresRepository(t *testing.T) {
	if _, err := NewSystemService(SystemServiceDeps{}); err == nil {
		t.Fatalf("expected error when repository missing")
	}
}

func TestUserServiceEnsureProfileKeepsCreationTime(t *testing.T) {
	created := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	users := &fakeUserRepository{
		profiles: map[string]domain.UserProfile{
			"u_1": {ID: "u_1", DisplayName: "Old Name", Email: "old@example.com", Role: "user", CreatedAt: created},
		},
	}
	svc, err := NewUserService(UserServiceDeps{Users: users, Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewUserService: %v", err)
	}

	profile, err := svc.EnsureProfile(context.Background(), EnsureProfileCommand{
		UserID:      "u_1",
		DisplayName: "New Name",
	})
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if profile.CreatedAt != created {
		t.Fatalf("expected original creation time, got %s", profile.CreatedAt)
	}
	if profile.DisplayName != "New Name" {
		t.Fatalf("expected updated name, got %q", profile.DisplayName)
	}
	if profile.Email != "old@example.com" {
		t.Fatalf("expected stored email kept, got %q", profile.Email)
	}
	if profile.UpdatedAt != now {
		t.Fatalf("expected updatedAt %s, got %s", now, profile.UpdatedAt)
	}
}

func TestUserServiceEnsureProfileCreatesMissing(t *testing.T) {
	users := &fakeUserRepository{}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc, err := NewUserService(UserServiceDeps{Users: users, Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewUserService: %v", err)
	}

	profile, err := svc.EnsureProfile(context.Background(), EnsureProfileCommand{
		UserID: "u_new",
		Email:  "new@example.com",
		Role:   "user",
	})
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if profile.CreatedAt != now {
		t.Fatalf("expected new creation time, got %s", profile.CreatedAt)
	}
	if len(users.upserted) != 1 {
		t.Fatalf("expected one upsert, got %d", len(users.upserted))
	}

	if _, err := svc.GetProfile(context.Background(), "u_missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
