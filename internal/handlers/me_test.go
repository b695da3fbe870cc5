package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ordercraft/api/internal/platform/auth"
	"github.com/ordercraft/api/internal/services"
)

type stubUserService struct {
	ensureFn func(context.Context, services.EnsureProfileCommand) (services.UserProfile, error)
	getFn    func(context.Context, string) (services.UserProfile, error)
}

func (s *stubUserService) EnsureProfile(ctx context.Context, cmd services.EnsureProfileCommand) (services.UserProfile, error) {
	if s.ensureFn != nil {
		return s.ensureFn(ctx, cmd)
	}
	return services.UserProfile{}, errors.New("not implemented")
}

func (s *stubUserService) GetProfile(ctx context.Context, userID string) (services.UserProfile, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return services.UserProfile{}, errors.New("not implemented")
}

func newMeRouter(service services.UserService) chi.Router {
	handler := NewMeHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/me", handler.Routes)
	return router
}

func TestMeHandlersGetProfileExisting(t *testing.T) {
	service := &stubUserService{
		getFn: func(ctx context.Context, userID string) (services.UserProfile, error) {
			return services.UserProfile{ID: userID, DisplayName: "Alice", Email: "alice@example.com", Role: "user"}, nil
		},
	}

	router := newMeRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp profilePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.ID != "user-1" || resp.DisplayName != "Alice" {
		t.Fatalf("unexpected profile payload: %#v", resp)
	}
}

func TestMeHandlersGetProfileMirrorsOnFirstSight(t *testing.T) {
	var captured services.EnsureProfileCommand
	service := &stubUserService{
		getFn: func(ctx context.Context, userID string) (services.UserProfile, error) {
			return services.UserProfile{}, services.ErrUserNotFound
		},
		ensureFn: func(ctx context.Context, cmd services.EnsureProfileCommand) (services.UserProfile, error) {
			captured = cmd
			return services.UserProfile{ID: cmd.UserID, Email: cmd.Email, Role: cmd.Role}, nil
		},
	}

	router := newMeRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{
		UID:   "user-1",
		Email: "alice@example.com",
		Roles: []string{auth.RoleStaff},
	}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.UserID != "user-1" || captured.Email != "alice@example.com" {
		t.Fatalf("unexpected ensure command: %#v", captured)
	}
	if captured.Role != auth.RoleStaff {
		t.Fatalf("expected staff role mirrored, got %s", captured.Role)
	}
}

func TestMeHandlersUpdateProfile(t *testing.T) {
	var captured services.EnsureProfileCommand
	service := &stubUserService{
		ensureFn: func(ctx context.Context, cmd services.EnsureProfileCommand) (services.UserProfile, error) {
			captured = cmd
			return services.UserProfile{ID: cmd.UserID, DisplayName: cmd.DisplayName}, nil
		},
	}

	router := newMeRouter(service)
	body := []byte(`{"display_name":"  New Name  "}`)
	req := httptest.NewRequest(http.MethodPut, "/me", bytes.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1", Roles: []string{auth.RoleUser}}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.DisplayName != "New Name" {
		t.Fatalf("expected trimmed display name, got %q", captured.DisplayName)
	}
	if captured.Role != auth.RoleUser {
		t.Fatalf("expected user role, got %s", captured.Role)
	}
}

func TestMeHandlersUpdateProfileEmptyBody(t *testing.T) {
	router := newMeRouter(&stubUserService{})
	req := httptest.NewRequest(http.MethodPut, "/me", bytes.NewReader(nil))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestMeHandlersUnauthenticated(t *testing.T) {
	handler := NewMeHandlers(nil, &stubUserService{})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rr := httptest.NewRecorder()
	handler.getProfile(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}
