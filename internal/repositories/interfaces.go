package repositories

import (
	"context"
	"time"

	domain "github.com/ordercraft/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Orders() OrderRepository
	Coupons() CouponRepository
	Reviews() ReviewRepository
	Carts() CartRepository
	Users() UserRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository persists catalog products and their denormalised rating aggregates.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter domain.ProductListFilter, pager domain.Pagination) (domain.CursorPage[domain.Product], error)
}

// OrderCreateRequest carries the inputs for atomic order placement. Item
// prices are resolved from the catalog inside the transaction; callers only
// provide product references and quantities.
type OrderCreateRequest struct {
	OrderID         string
	UserID          string
	ShippingAddress string
	Items           []domain.OrderItem
	CouponCode      string
	ClearCart       bool
	Now             time.Time
}

// OrderListFilter restricts admin order listings.
type OrderListFilter struct {
	UserID string
	Status domain.OrderStatus
}

// OrderRepository owns order persistence. CreateOrder and UpdateStatus run
// their stock and coupon side effects in the same transaction as the order
// write, so either everything commits or nothing does.
type OrderRepository interface {
	CreateOrder(ctx context.Context, req OrderCreateRequest) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus, now time.Time) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
	List(ctx context.Context, filter OrderListFilter, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
}

// CouponRepository persists coupons and enforces code uniqueness.
type CouponRepository interface {
	Create(ctx context.Context, coupon domain.Coupon) error
	FindByID(ctx context.Context, couponID string) (domain.Coupon, error)
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Coupon], error)
}

// ReviewCreateResult returns the stored review together with the product's
// refreshed rating aggregates.
type ReviewCreateResult struct {
	Review  domain.Review
	Product domain.Product
}

// ReviewRepository persists reviews. Create verifies purchase eligibility,
// enforces the one-review-per-user-product rule, and recomputes the product's
// average rating in one transaction.
type ReviewRepository interface {
	Create(ctx context.Context, review domain.Review) (ReviewCreateResult, error)
	ListByProduct(ctx context.Context, productID string, pager domain.Pagination) (domain.CursorPage[domain.Review], error)
}

// CartRepository owns cart item persistence keyed by user.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	UpsertItem(ctx context.Context, userID string, item domain.CartItem) (domain.Cart, error)
	RemoveItem(ctx context.Context, userID string, itemID string) error
	Clear(ctx context.Context, userID string) error
}

// UserRepository mirrors identity provider users into the document store.
type UserRepository interface {
	Get(ctx context.Context, userID string) (domain.UserProfile, error)
	Upsert(ctx context.Context, profile domain.UserProfile) error
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
