package firestore

import (
	"context"
	"errors"
	"strings"

	domain "github.com/ordercraft/api/internal/domain"
	pfirestore "github.com/ordercraft/api/internal/platform/firestore"
	"github.com/ordercraft/api/internal/repositories"
)

// UserRepository mirrors identity provider users into Firestore so other
// documents can join display data without calling the provider.
type UserRepository struct {
	users *pfirestore.BaseRepository[userDocument]
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a UserRepository backed by Firestore.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{
		users: pfirestore.NewBaseRepository[userDocument](provider, usersCollection, nil, nil),
	}, nil
}

// Get loads a user profile by its identity provider UID.
func (r *UserRepository) Get(ctx context.Context, userID string) (domain.UserProfile, error) {
	if r == nil || r.users == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.UserProfile{}, errors.New("user get: user id is required")
	}
	doc, err := r.users.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Upsert writes the profile under its UID, creating or replacing it.
func (r *UserRepository) Upsert(ctx context.Context, profile domain.UserProfile) error {
	if r == nil || r.users == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(profile.ID) == "" {
		return errors.New("user upsert: user id is required")
	}
	_, err := r.users.Set(ctx, profile.ID, newUserDocument(profile))
	return err
}
