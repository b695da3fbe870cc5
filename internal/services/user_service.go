package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/ordercraft/api/internal/domain"
	"github.com/ordercraft/api/internal/repositories"
)

var (
	// ErrUserInvalidInput indicates validation failures for user operations.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates the profile could not be located.
	ErrUserNotFound = errors.New("user: not found")
)

// UserServiceDeps bundles collaborators required to construct a UserService.
type UserServiceDeps struct {
	Users repositories.UserRepository
	Clock func() time.Time
}

type userService struct {
	users repositories.UserRepository
	clock func() time.Time
}

var _ UserService = (*userService)(nil)

// NewUserService wires dependencies into a concrete UserService implementation.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &userService{
		users: deps.Users,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// EnsureProfile mirrors the authenticated identity into the user store,
// keeping the stored creation timestamp when the profile already exists.
func (s *userService) EnsureProfile(ctx context.Context, cmd EnsureProfileCommand) (UserProfile, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}

	now := s.clock()
	profile := domain.UserProfile{
		ID:          userID,
		DisplayName: strings.TrimSpace(cmd.DisplayName),
		Email:       strings.TrimSpace(cmd.Email),
		Role:        strings.TrimSpace(cmd.Role),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	existing, err := s.users.Get(ctx, userID)
	switch {
	case err == nil:
		profile.CreatedAt = existing.CreatedAt
		if profile.DisplayName == "" {
			profile.DisplayName = existing.DisplayName
		}
		if profile.Email == "" {
			profile.Email = existing.Email
		}
		if profile.Role == "" {
			profile.Role = existing.Role
		}
	default:
		var repoErr repositories.RepositoryError
		if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
			return UserProfile{}, err
		}
	}

	if err := s.users.Upsert(ctx, profile); err != nil {
		return UserProfile{}, err
	}
	return profile, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	profile, err := s.users.Get(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return UserProfile{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return UserProfile{}, err
	}
	return profile, nil
}
