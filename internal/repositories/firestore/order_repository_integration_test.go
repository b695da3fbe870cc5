//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	domain "github.com/ordercraft/api/internal/domain"
	pconfig "github.com/ordercraft/api/internal/platform/config"
	pfirestore "github.com/ordercraft/api/internal/platform/firestore"
	"github.com/ordercraft/api/internal/repositories"
)

func TestOrderRepositoryIntegration(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "orders-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	registry, err := NewRegistry(provider, stubHealthRepository{})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Second)

	if err := registry.Users().Upsert(ctx, domain.UserProfile{
		ID:          "u_buyer",
		DisplayName: "Test Buyer",
		Email:       "buyer@example.com",
		Role:        "user",
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	product := domain.Product{
		ID:        "prd_keyboard",
		Name:      "Mechanical Keyboard",
		Brand:     "Acme",
		Category:  "peripherals",
		Price:     12000,
		Quantity:  5,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := registry.Products().Insert(ctx, product); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	coupon := domain.Coupon{
		ID:            "cpn_welcome",
		Code:          "WELCOME10",
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: 10,
		ExpiresAt:     now.Add(24 * time.Hour),
		UsageLimit:    1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := registry.Coupons().Create(ctx, coupon); err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	// Duplicate code creation must fail against the code index.
	err = registry.Coupons().Create(ctx, domain.Coupon{
		ID:            "cpn_other",
		Code:          "welcome10",
		DiscountType:  domain.DiscountFixedAmount,
		DiscountValue: 500,
		ExpiresAt:     now.Add(time.Hour),
		UsageLimit:    10,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	var cpnErr *repositories.CouponError
	if !errors.As(err, &cpnErr) || cpnErr.Code != repositories.CouponErrorCodeExists {
		t.Fatalf("expected coupon code exists error, got %v", err)
	}

	if _, err := registry.Carts().UpsertItem(ctx, "u_buyer", domain.CartItem{
		ProductID: product.ID,
		Quantity:  2,
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	// Happy path: stock decrements, coupon redeems, cart clears, all at once.
	order, err := registry.Orders().CreateOrder(ctx, repositories.OrderCreateRequest{
		OrderID:         "ord_1",
		UserID:          "u_buyer",
		ShippingAddress: "1 Test Street",
		Items:           []domain.OrderItem{{ProductID: product.ID, Quantity: 2}},
		CouponCode:      "welcome10",
		ClearCart:       true,
		Now:             now,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	// 2 x 12000 = 24000, minus 10 percent.
	if order.TotalAmount != 21600 {
		t.Fatalf("expected total 21600, got %d", order.TotalAmount)
	}
	if order.CouponID != coupon.ID {
		t.Fatalf("expected coupon %s on order, got %s", coupon.ID, order.CouponID)
	}

	afterOrder, err := registry.Products().FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	if afterOrder.Quantity != 3 {
		t.Fatalf("expected quantity 3 after order, got %d", afterOrder.Quantity)
	}

	cart, err := registry.Carts().GetCart(ctx, "u_buyer")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected cleared cart, got %d items", len(cart.Items))
	}

	// The single-use coupon is exhausted now.
	_, err = registry.Orders().CreateOrder(ctx, repositories.OrderCreateRequest{
		OrderID:    "ord_coupon_again",
		UserID:     "u_buyer",
		Items:      []domain.OrderItem{{ProductID: product.ID, Quantity: 1}},
		CouponCode: "WELCOME10",
		Now:        now,
	})
	cpnErr = nil
	if !errors.As(err, &cpnErr) || cpnErr.Code != repositories.CouponErrorExhausted {
		t.Fatalf("expected coupon exhausted error, got %v", err)
	}

	// Out of stock rolls the whole order back.
	_, err = registry.Orders().CreateOrder(ctx, repositories.OrderCreateRequest{
		OrderID: "ord_too_many",
		UserID:  "u_buyer",
		Items:   []domain.OrderItem{{ProductID: product.ID, Quantity: 10}},
		Now:     now,
	})
	var ordErr *repositories.OrderError
	if !errors.As(err, &ordErr) || ordErr.Code != repositories.OrderErrorInsufficientStock {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	afterFailed, err := registry.Products().FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("find product after failed order: %v", err)
	}
	if afterFailed.Quantity != 3 {
		t.Fatalf("expected quantity unchanged at 3, got %d", afterFailed.Quantity)
	}
	if _, err := registry.Orders().FindByID(ctx, "ord_too_many"); err == nil {
		t.Fatalf("expected failed order not to exist")
	}

	// Reviews require a delivered purchase.
	_, err = registry.Reviews().Create(ctx, domain.Review{
		UserID:    "u_buyer",
		ProductID: product.ID,
		Rating:    5,
		Comment:   "great",
		CreatedAt: now,
		UpdatedAt: now,
	})
	var revErr *repositories.ReviewError
	if !errors.As(err, &revErr) || revErr.Code != repositories.ReviewErrorPurchaseNotVerified {
		t.Fatalf("expected purchase not verified error, got %v", err)
	}

	// Walk the order to delivered.
	for _, next := range []domain.OrderStatus{
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		if _, err := registry.Orders().UpdateStatus(ctx, order.ID, next, now.Add(time.Minute)); err != nil {
			t.Fatalf("update status to %s: %v", next, err)
		}
	}

	// Backward transitions are rejected.
	_, err = registry.Orders().UpdateStatus(ctx, order.ID, domain.OrderStatusPending, now)
	ordErr = nil
	if !errors.As(err, &ordErr) || ordErr.Code != repositories.OrderErrorInvalidTransition {
		t.Fatalf("expected invalid transition error, got %v", err)
	}

	result, err := registry.Reviews().Create(ctx, domain.Review{
		UserID:    "u_buyer",
		ProductID: product.ID,
		Rating:    4,
		Comment:   "solid build",
		CreatedAt: now.Add(2 * time.Minute),
		UpdatedAt: now.Add(2 * time.Minute),
	})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if result.Product.ReviewsCount != 1 {
		t.Fatalf("expected 1 review, got %d", result.Product.ReviewsCount)
	}
	if result.Product.AverageRating != 4 {
		t.Fatalf("expected average 4, got %f", result.Product.AverageRating)
	}

	// One review per user and product.
	_, err = registry.Reviews().Create(ctx, domain.Review{
		UserID:    "u_buyer",
		ProductID: product.ID,
		Rating:    1,
		CreatedAt: now.Add(3 * time.Minute),
		UpdatedAt: now.Add(3 * time.Minute),
	})
	revErr = nil
	if !errors.As(err, &revErr) || revErr.Code != repositories.ReviewErrorDuplicate {
		t.Fatalf("expected duplicate review error, got %v", err)
	}

	// Cancel restocks every line.
	cancelOrder, err := registry.Orders().CreateOrder(ctx, repositories.OrderCreateRequest{
		OrderID: "ord_cancel",
		UserID:  "u_buyer",
		Items:   []domain.OrderItem{{ProductID: product.ID, Quantity: 3}},
		Now:     now,
	})
	if err != nil {
		t.Fatalf("create cancel order: %v", err)
	}
	beforeCancel, err := registry.Products().FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("find product before cancel: %v", err)
	}
	if beforeCancel.Quantity != 0 {
		t.Fatalf("expected quantity 0 before cancel, got %d", beforeCancel.Quantity)
	}
	canceled, err := registry.Orders().UpdateStatus(ctx, cancelOrder.ID, domain.OrderStatusCanceled, now.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if canceled.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected canceled status, got %s", canceled.Status)
	}
	afterCancel, err := registry.Products().FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("find product after cancel: %v", err)
	}
	if afterCancel.Quantity != 3 {
		t.Fatalf("expected quantity 3 after cancel, got %d", afterCancel.Quantity)
	}

	// Cancelled orders stay cancelled.
	_, err = registry.Orders().UpdateStatus(ctx, cancelOrder.ID, domain.OrderStatusProcessing, now)
	ordErr = nil
	if !errors.As(err, &ordErr) || ordErr.Code != repositories.OrderErrorInvalidTransition {
		t.Fatalf("expected invalid transition after cancel, got %v", err)
	}

	page, err := registry.Orders().ListByUser(ctx, "u_buyer", domain.Pagination{PageSize: 10})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(page.Items))
	}
}

type stubHealthRepository struct{}

func (stubHealthRepository) Collect(context.Context) (domain.SystemHealthReport, error) {
	return domain.SystemHealthReport{Status: domain.HealthStatusOK}, nil
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Fatalf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
