package firestore

import (
	"strings"
	"time"

	domain "github.com/ordercraft/api/internal/domain"
)

// Collection names used by the Firestore backed repositories.
const (
	productsCollection    = "products"
	ordersCollection      = "orders"
	couponsCollection     = "coupons"
	couponCodesCollection = "couponCodes"
	reviewsCollection     = "reviews"
	cartsCollection       = "carts"
	cartItemsCollection   = "items"
	usersCollection       = "users"
)

type productDocument struct {
	Name          string    `firestore:"name"`
	Description   string    `firestore:"description,omitempty"`
	Brand         string    `firestore:"brand,omitempty"`
	Category      string    `firestore:"category,omitempty"`
	ImageURL      string    `firestore:"imageUrl,omitempty"`
	Price         int64     `firestore:"price"`
	Quantity      int64     `firestore:"quantity"`
	AverageRating float64   `firestore:"averageRating"`
	ReviewsCount  int64     `firestore:"reviewsCount"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func newProductDocument(p domain.Product) productDocument {
	return productDocument{
		Name:          strings.TrimSpace(p.Name),
		Description:   strings.TrimSpace(p.Description),
		Brand:         strings.TrimSpace(p.Brand),
		Category:      strings.TrimSpace(p.Category),
		ImageURL:      strings.TrimSpace(p.ImageURL),
		Price:         p.Price,
		Quantity:      p.Quantity,
		AverageRating: p.AverageRating,
		ReviewsCount:  p.ReviewsCount,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:            id,
		Name:          d.Name,
		Description:   d.Description,
		Brand:         d.Brand,
		Category:      d.Category,
		ImageURL:      d.ImageURL,
		Price:         d.Price,
		Quantity:      d.Quantity,
		AverageRating: d.AverageRating,
		ReviewsCount:  d.ReviewsCount,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Quantity  int64  `firestore:"qty"`
	Price     int64  `firestore:"price"`
}

type orderDocument struct {
	UserID          string              `firestore:"userId"`
	ShippingAddress string              `firestore:"shippingAddress"`
	Status          string              `firestore:"status"`
	TotalAmount     int64               `firestore:"totalAmount"`
	CouponID        string              `firestore:"couponId,omitempty"`
	Items           []orderItemDocument `firestore:"items"`
	// ProductIDs duplicates the item product references so delivered-purchase
	// checks can use an array-contains query.
	ProductIDs []string  `firestore:"productIds"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func newOrderDocument(o domain.Order) orderDocument {
	items := make([]orderItemDocument, len(o.Items))
	productIDs := make([]string, 0, len(o.Items))
	seen := make(map[string]struct{}, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemDocument{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
		if _, ok := seen[items[i].ProductID]; !ok {
			seen[items[i].ProductID] = struct{}{}
			productIDs = append(productIDs, items[i].ProductID)
		}
	}
	return orderDocument{
		UserID:          strings.TrimSpace(o.UserID),
		ShippingAddress: strings.TrimSpace(o.ShippingAddress),
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		CouponID:        strings.TrimSpace(o.CouponID),
		Items:           items,
		ProductIDs:      productIDs,
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return domain.Order{
		ID:              id,
		UserID:          d.UserID,
		ShippingAddress: d.ShippingAddress,
		Status:          domain.OrderStatus(d.Status),
		TotalAmount:     d.TotalAmount,
		CouponID:        d.CouponID,
		Items:           items,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type couponDocument struct {
	Code          string    `firestore:"code"`
	DiscountType  string    `firestore:"discountType"`
	DiscountValue int64     `firestore:"discountValue"`
	ExpiresAt     time.Time `firestore:"expiresAt"`
	UsageLimit    int64     `firestore:"usageLimit"`
	Used          int64     `firestore:"used"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func newCouponDocument(c domain.Coupon) couponDocument {
	return couponDocument{
		Code:          strings.ToUpper(strings.TrimSpace(c.Code)),
		DiscountType:  string(c.DiscountType),
		DiscountValue: c.DiscountValue,
		ExpiresAt:     c.ExpiresAt.UTC(),
		UsageLimit:    c.UsageLimit,
		Used:          c.Used,
		CreatedAt:     c.CreatedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
	}
}

func (d couponDocument) toDomain(id string) domain.Coupon {
	return domain.Coupon{
		ID:            id,
		Code:          d.Code,
		DiscountType:  domain.DiscountType(d.DiscountType),
		DiscountValue: d.DiscountValue,
		ExpiresAt:     d.ExpiresAt,
		UsageLimit:    d.UsageLimit,
		Used:          d.Used,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// couponCodeDocument maps an uppercase coupon code to its coupon. Creating it
// with tx.Create is what enforces code uniqueness.
type couponCodeDocument struct {
	CouponID  string    `firestore:"couponId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type reviewDocument struct {
	UserID    string    `firestore:"userId"`
	ProductID string    `firestore:"productId"`
	Rating    int       `firestore:"rating"`
	Comment   string    `firestore:"comment,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newReviewDocument(r domain.Review) reviewDocument {
	return reviewDocument{
		UserID:    strings.TrimSpace(r.UserID),
		ProductID: strings.TrimSpace(r.ProductID),
		Rating:    r.Rating,
		Comment:   strings.TrimSpace(r.Comment),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (d reviewDocument) toDomain(id string) domain.Review {
	return domain.Review{
		ID:        id,
		UserID:    d.UserID,
		ProductID: d.ProductID,
		Rating:    d.Rating,
		Comment:   d.Comment,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// reviewDocumentID derives the deterministic document ID that enforces the
// one-review-per-user-product rule.
func reviewDocumentID(userID, productID string) string {
	return strings.TrimSpace(userID) + "_" + strings.TrimSpace(productID)
}

type cartDocument struct {
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ProductID string    `firestore:"productId"`
	Quantity  int64     `firestore:"qty"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func (d cartItemDocument) toDomain(id string) domain.CartItem {
	return domain.CartItem{
		ID:        id,
		ProductID: d.ProductID,
		Quantity:  d.Quantity,
		CreatedAt: d.CreatedAt,
	}
}

type userDocument struct {
	DisplayName string    `firestore:"displayName,omitempty"`
	Email       string    `firestore:"email,omitempty"`
	Role        string    `firestore:"role,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func newUserDocument(u domain.UserProfile) userDocument {
	return userDocument{
		DisplayName: strings.TrimSpace(u.DisplayName),
		Email:       strings.TrimSpace(u.Email),
		Role:        strings.TrimSpace(u.Role),
		CreatedAt:   u.CreatedAt.UTC(),
		UpdatedAt:   u.UpdatedAt.UTC(),
	}
}

func (d userDocument) toDomain(id string) domain.UserProfile {
	return domain.UserProfile{
		ID:          id,
		DisplayName: d.DisplayName,
		Email:       d.Email,
		Role:        d.Role,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
