package services

import (
	"context"
	"time"

	domain "github.com/ordercraft/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Product            = domain.Product
	ProductListFilter  = domain.ProductListFilter
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	Coupon             = domain.Coupon
	Review             = domain.Review
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	UserProfile        = domain.UserProfile
	SystemHealthReport = domain.SystemHealthReport
)

// OrderService orchestrates order placement and lifecycle transitions.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	Get(ctx context.Context, cmd GetOrderCommand) (Order, error)
	ListByUser(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Order], error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd TransitionOrderCommand) (Order, error)
}

// CouponService manages coupon administration and read-only discount previews.
// Redemption happens inside the order transaction, not here.
type CouponService interface {
	Create(ctx context.Context, cmd CreateCouponCommand) (Coupon, error)
	Get(ctx context.Context, couponID string) (Coupon, error)
	List(ctx context.Context, pager Pagination) (domain.CursorPage[Coupon], error)
	PreviewDiscount(ctx context.Context, cmd PreviewDiscountCommand) (DiscountPreview, error)
}

// ReviewService handles verified-purchase review submission and listing.
type ReviewService interface {
	Create(ctx context.Context, cmd CreateReviewCommand) (Review, error)
	ListByProduct(ctx context.Context, productID string, pager Pagination) (domain.CursorPage[Review], error)
}

// CatalogService manages the product catalog.
type CatalogService interface {
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, filter ProductListFilter, pager Pagination) (domain.CursorPage[Product], error)
}

// CartService manages the mutable per-user cart.
type CartService interface {
	GetCart(ctx context.Context, userID string) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) error
	Clear(ctx context.Context, userID string) error
}

// UserService mirrors identity provider profiles into the document store.
type UserService interface {
	EnsureProfile(ctx context.Context, cmd EnsureProfileCommand) (UserProfile, error)
	GetProfile(ctx context.Context, userID string) (UserProfile, error)
}

// SystemService exposes operational health information.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// CreateOrderCommand carries the inputs for order placement. Lines are kept in
// payload order and duplicate product references are not merged.
type CreateOrderCommand struct {
	UserID          string
	ShippingAddress string
	Items           []OrderItemInput
	CouponCode      string
}

// OrderItemInput is one requested order line.
type OrderItemInput struct {
	ProductID string
	Quantity  int64
}

// GetOrderCommand reads one order on behalf of an actor.
type GetOrderCommand struct {
	OrderID    string
	ActorID    string
	AllowStaff bool
}

// OrderListFilter restricts admin order listings.
type OrderListFilter struct {
	UserID     string
	Status     OrderStatus
	Pagination Pagination
}

// TransitionOrderCommand moves an order to its next status.
type TransitionOrderCommand struct {
	OrderID string
	Next    OrderStatus
	ActorID string
}

// CreateCouponCommand carries admin coupon creation inputs.
type CreateCouponCommand struct {
	Code          string
	DiscountType  domain.DiscountType
	DiscountValue int64
	ExpiresAt     time.Time
	UsageLimit    int64
}

// PreviewDiscountCommand asks what a coupon would take off a given amount.
type PreviewDiscountCommand struct {
	Code   string
	Amount int64
}

// DiscountPreview is the outcome of a read-only coupon application.
type DiscountPreview struct {
	Coupon           Coupon
	Amount           int64
	Discount         int64
	DiscountedAmount int64
}

// CreateReviewCommand carries review submission inputs.
type CreateReviewCommand struct {
	UserID    string
	ProductID string
	Rating    int
	Comment   string
}

// CreateProductCommand carries admin product creation inputs.
type CreateProductCommand struct {
	Name        string
	Description string
	Brand       string
	Category    string
	ImageURL    string
	Price       int64
	Quantity    int64
}

// AddCartItemCommand adds a product line to the actor's cart.
type AddCartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int64
}

// RemoveCartItemCommand removes one line from the actor's cart.
type RemoveCartItemCommand struct {
	UserID string
	ItemID string
}

// EnsureProfileCommand mirrors the authenticated identity into the user store.
type EnsureProfileCommand struct {
	UserID      string
	DisplayName string
	Email       string
	Role        string
}
