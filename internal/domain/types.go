package domain

import "time"

// Product is the catalog entity. Price is stored in minor currency units
// (cents). Quantity is the on-hand stock count and never drops below zero.
// AverageRating is denormalised from the product's reviews and recomputed in
// full whenever a review is written.
type Product struct {
	ID            string
	Name          string
	Description   string
	Brand         string
	Category      string
	ImageURL      string
	Price         int64
	Quantity      int64
	AverageRating float64
	ReviewsCount  int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Order is created once, atomically together with its items; after creation
// only Status may change. TotalAmount reflects the item price snapshots minus
// any coupon discount applied at commit time.
type Order struct {
	ID              string
	UserID          string
	ShippingAddress string
	Status          OrderStatus
	TotalAmount     int64
	CouponID        string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem references a product and carries a price snapshot
// (unit price x quantity at order time). The snapshot is never recomputed.
type OrderItem struct {
	ProductID string
	Quantity  int64
	Price     int64

	// Display enrichment, populated on reads only.
	ProductName  string
	ProductImage string
}

// Review belongs to one user and one product. At most one review exists per
// (UserID, ProductID) pair, and a review may only exist when the user has a
// delivered order containing the product.
type Review struct {
	ID        string
	UserID    string
	ProductID string
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time

	// ReviewerName is populated from the user store on reads.
	ReviewerName string
}

// Cart groups the items a user intends to order. The order workflow clears
// the items after a successful order.
type Cart struct {
	UserID    string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a single product line within a cart.
type CartItem struct {
	ID        string
	ProductID string
	Quantity  int64
	CreatedAt time.Time
}

// UserProfile mirrors the identity provider's view of a user.
type UserProfile struct {
	ID          string
	DisplayName string
	Email       string
	Role        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Pagination carries cursor-based paging parameters.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage is a generic page of results with an opaque continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// ProductListFilter enumerates the supported catalog list predicates. Only
// the fields listed here may reach the store; arbitrary field-to-value maps
// are deliberately not supported.
type ProductListFilter struct {
	Brand        string
	Category     string
	NameContains string
	MinPrice     int64
	MaxPrice     int64
}
