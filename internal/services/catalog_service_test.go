package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/ordercraft/api/internal/domain"
)

func TestCatalogServiceCreateProduct(t *testing.T) {
	repo := &fakeProductRepository{}
	now := time.Date(2024, time.June, 3, 8, 0, 0, 0, time.UTC)
	svc, err := NewCatalogService(CatalogServiceDeps{
		Products: repo,
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}

	product, err := svc.CreateProduct(context.Background(), CreateProductCommand{
		Name:     "  Mechanical Keyboard ",
		Brand:    "Acme",
		Category: "peripherals",
		Price:    12000,
		Quantity: 25,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if !strings.HasPrefix(product.ID, "prd_") {
		t.Fatalf("expected prd_ prefixed id, got %s", product.ID)
	}
	if product.Name != "Mechanical Keyboard" {
		t.Fatalf("expected trimmed name, got %q", product.Name)
	}
	if repo.inserted.CreatedAt != now {
		t.Fatalf("expected clock timestamp, got %s", repo.inserted.CreatedAt)
	}
}

func TestCatalogServiceCreateProductValidation(t *testing.T) {
	svc, err := NewCatalogService(CatalogServiceDeps{Products: &fakeProductRepository{}})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}

	cases := []CreateProductCommand{
		{Price: 100, Quantity: 1},
		{Name: "X", Price: 0, Quantity: 1},
		{Name: "X", Price: -1, Quantity: 1},
		{Name: "X", Price: 100, Quantity: -1},
	}
	for i, cmd := range cases {
		if _, err := svc.CreateProduct(context.Background(), cmd); !errors.Is(err, ErrProductInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestCatalogServiceGetProduct(t *testing.T) {
	repo := &fakeProductRepository{
		products: map[string]domain.Product{
			"prd_1": {ID: "prd_1", Name: "Keyboard"},
		},
	}
	svc, err := NewCatalogService(CatalogServiceDeps{Products: repo})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}

	product, err := svc.GetProduct(context.Background(), "prd_1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if product.Name != "Keyboard" {
		t.Fatalf("unexpected product %+v", product)
	}

	if _, err := svc.GetProduct(context.Background(), "prd_missing"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalogServiceListProductsValidatesFilter(t *testing.T) {
	svc, err := NewCatalogService(CatalogServiceDeps{Products: &fakeProductRepository{}})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}

	cases := []domain.ProductListFilter{
		{MinPrice: -1},
		{MaxPrice: -1},
		{MinPrice: 500, MaxPrice: 100},
	}
	for i, filter := range cases {
		if _, err := svc.ListProducts(context.Background(), filter, Pagination{}); !errors.Is(err, ErrProductInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}
