package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/ordercraft/api/internal/domain"
)

type fakeCartRepository struct {
	cart        domain.Cart
	upsertedFor string
	upserted    domain.CartItem
	removedItem string
	removeErr   error
	clearedFor  string
}

func (f *fakeCartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	return f.cart, nil
}

func (f *fakeCartRepository) UpsertItem(ctx context.Context, userID string, item domain.CartItem) (domain.Cart, error) {
	f.upsertedFor = userID
	f.upserted = item
	return f.cart, nil
}

func (f *fakeCartRepository) RemoveItem(ctx context.Context, userID string, itemID string) error {
	f.removedItem = itemID
	return f.removeErr
}

func (f *fakeCartRepository) Clear(ctx context.Context, userID string) error {
	f.clearedFor = userID
	return nil
}

func TestCartServiceAddItem(t *testing.T) {
	carts := &fakeCartRepository{
		cart: domain.Cart{UserID: "u_1", Items: []domain.CartItem{{ID: "itm_1", ProductID: "prd_1", Quantity: 2}}},
	}
	products := &fakeProductRepository{
		products: map[string]domain.Product{"prd_1": {ID: "prd_1"}},
	}
	svc, err := NewCartService(CartServiceDeps{Carts: carts, Products: products})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}

	cart, err := svc.AddItem(context.Background(), AddCartItemCommand{UserID: "u_1", ProductID: "prd_1", Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if carts.upsertedFor != "u_1" || carts.upserted.ProductID != "prd_1" || carts.upserted.Quantity != 2 {
		t.Fatalf("unexpected upsert %s %+v", carts.upsertedFor, carts.upserted)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected cart returned, got %+v", cart)
	}
}

func TestCartServiceAddItemUnknownProduct(t *testing.T) {
	svc, err := NewCartService(CartServiceDeps{
		Carts:    &fakeCartRepository{},
		Products: &fakeProductRepository{},
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}

	_, err = svc.AddItem(context.Background(), AddCartItemCommand{UserID: "u_1", ProductID: "prd_missing", Quantity: 1})
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected invalid input for unknown product, got %v", err)
	}
}

func TestCartServiceAddItemValidation(t *testing.T) {
	svc, err := NewCartService(CartServiceDeps{
		Carts:    &fakeCartRepository{},
		Products: &fakeProductRepository{},
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}

	cases := []AddCartItemCommand{
		{ProductID: "prd_1", Quantity: 1},
		{UserID: "u_1", Quantity: 1},
		{UserID: "u_1", ProductID: "prd_1", Quantity: 0},
	}
	for i, cmd := range cases {
		if _, err := svc.AddItem(context.Background(), cmd); !errors.Is(err, ErrCartInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestCartServiceRemoveItem(t *testing.T) {
	carts := &fakeCartRepository{}
	svc, err := NewCartService(CartServiceDeps{Carts: carts, Products: &fakeProductRepository{}})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}

	if err := svc.RemoveItem(context.Background(), RemoveCartItemCommand{UserID: "u_1", ItemID: "itm_1"}); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if carts.removedItem != "itm_1" {
		t.Fatalf("expected item removal, got %s", carts.removedItem)
	}

	carts.removeErr = notFoundError{msg: "missing"}
	if err := svc.RemoveItem(context.Background(), RemoveCartItemCommand{UserID: "u_1", ItemID: "itm_2"}); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestCartServiceClear(t *testing.T) {
	carts := &fakeCartRepository{}
	svc, err := NewCartService(CartServiceDeps{Carts: carts, Products: &fakeProductRepository{}})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}

	if err := svc.Clear(context.Background(), "u_1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if carts.clearedFor != "u_1" {
		t.Fatalf("expected clear for u_1, got %q", carts.clearedFor)
	}

	if err := svc.Clear(context.Background(), "  "); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected invalid input for blank user, got %v", err)
	}
}
