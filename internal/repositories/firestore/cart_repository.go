package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/ordercraft/api/internal/domain"
	pfirestore "github.com/ordercraft/api/internal/platform/firestore"
	"github.com/ordercraft/api/internal/repositories"
)

// CartRepository stores one cart document per user with the item lines in a
// subcollection, so order placement can delete the lines individually inside
// its transaction.
type CartRepository struct {
	provider *pfirestore.Provider
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a CartRepository backed by Firestore.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{provider: provider}, nil
}

// GetCart loads the user's cart. A user without a cart document gets an empty
// cart rather than an error.
func (r *CartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.provider == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, errors.New("cart get: user id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.get", err)
	}

	cartRef := client.Collection(cartsCollection).Doc(userID)
	cart := domain.Cart{UserID: userID}

	snap, err := cartRef.Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return domain.Cart{}, pfirestore.WrapError("carts.get", err)
	}
	if err == nil {
		var doc cartDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.Cart{}, fmt.Errorf("decode cart %s: %w", userID, err)
		}
		cart.CreatedAt = doc.CreatedAt
		cart.UpdatedAt = doc.UpdatedAt
	}

	iter := cartRef.Collection(cartItemsCollection).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()
	for {
		itemSnap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.Cart{}, pfirestore.WrapError("carts.get", err)
		}
		var item cartItemDocument
		if err := itemSnap.DataTo(&item); err != nil {
			return domain.Cart{}, fmt.Errorf("decode cart item %s: %w", itemSnap.Ref.ID, err)
		}
		cart.Items = append(cart.Items, item.toDomain(itemSnap.Ref.ID))
	}

	return cart, nil
}

// UpsertItem adds the item to the cart, merging quantities when a line for the
// same product already exists, and returns the resulting cart.
func (r *CartRepository) UpsertItem(ctx context.Context, userID string, item domain.CartItem) (domain.Cart, error) {
	if r == nil || r.provider == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, errors.New("cart upsert: user id is required")
	}
	productID := strings.TrimSpace(item.ProductID)
	if productID == "" {
		return domain.Cart{}, errors.New("cart upsert: product id is required")
	}
	if item.Quantity <= 0 {
		return domain.Cart{}, errors.New("cart upsert: quantity must be > 0")
	}

	now := item.CreatedAt.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.upsertItem", err)
	}

	cartRef := client.Collection(cartsCollection).Doc(userID)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		cartSnap, err := tx.Get(cartRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		cartDoc := cartDocument{CreatedAt: now, UpdatedAt: now}
		if err == nil {
			if err := cartSnap.DataTo(&cartDoc); err != nil {
				return fmt.Errorf("decode cart %s: %w", userID, err)
			}
			cartDoc.UpdatedAt = now
		}

		existingQuery := cartRef.Collection(cartItemsCollection).Query.
			Where("productId", "==", productID).
			Limit(1)
		iter := tx.Documents(existingQuery)
		existingSnap, err := iter.Next()
		iter.Stop()

		var itemRef *firestore.DocumentRef
		itemDoc := cartItemDocument{ProductID: productID, Quantity: item.Quantity, CreatedAt: now}
		switch {
		case err == nil:
			itemRef = existingSnap.Ref
			var existing cartItemDocument
			if err := existingSnap.DataTo(&existing); err != nil {
				return fmt.Errorf("decode cart item %s: %w", existingSnap.Ref.ID, err)
			}
			itemDoc.Quantity += existing.Quantity
			itemDoc.CreatedAt = existing.CreatedAt
		case errors.Is(err, iterator.Done):
			itemID := strings.TrimSpace(item.ID)
			if itemID == "" {
				itemRef = cartRef.Collection(cartItemsCollection).NewDoc()
			} else {
				itemRef = cartRef.Collection(cartItemsCollection).Doc(itemID)
			}
		default:
			return err
		}

		if err := tx.Set(cartRef, cartDoc); err != nil {
			return err
		}
		return tx.Set(itemRef, itemDoc)
	})
	if err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.upsertItem", err)
	}

	return r.GetCart(ctx, userID)
}

// RemoveItem deletes one item line from the cart.
func (r *CartRepository) RemoveItem(ctx context.Context, userID string, itemID string) error {
	if r == nil || r.provider == nil {
		return errors.New("cart repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	itemID = strings.TrimSpace(itemID)
	if userID == "" {
		return errors.New("cart remove: user id is required")
	}
	if itemID == "" {
		return errors.New("cart remove: item id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return pfirestore.WrapError("carts.removeItem", err)
	}

	itemRef := client.Collection(cartsCollection).Doc(userID).Collection(cartItemsCollection).Doc(itemID)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(itemRef); err != nil {
			return err
		}
		return tx.Delete(itemRef)
	})
	if err != nil {
		return pfirestore.WrapError("carts.removeItem", err)
	}
	return nil
}

// Clear deletes every item line in the user's cart. The cart header stays so
// creation time survives an emptied cart.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if r == nil || r.provider == nil {
		return errors.New("cart repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("cart clear: user id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return pfirestore.WrapError("carts.clear", err)
	}

	itemsRef := client.Collection(cartsCollection).Doc(userID).Collection(cartItemsCollection)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		iter := tx.Documents(itemsRef.Query)
		defer iter.Stop()
		var refs []*firestore.DocumentRef
		for {
			snap, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return err
			}
			refs = append(refs, snap.Ref)
		}
		for _, ref := range refs {
			if err := tx.Delete(ref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pfirestore.WrapError("carts.clear", err)
	}
	return nil
}
