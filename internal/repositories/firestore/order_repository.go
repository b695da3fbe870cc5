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

// OrderRepository persists orders. Order placement and status changes run as
// serialisable transactions so stock, coupon usage, and the order document
// always commit together.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
	products *pfirestore.BaseRepository[productDocument]
	coupons  *pfirestore.BaseRepository[couponDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs an OrderRepository backed by Firestore.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil),
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil),
		coupons:  pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection, nil, nil),
	}, nil
}

// CreateOrder atomically validates stock for every line, decrements product
// quantities, redeems the coupon when one is supplied, writes the order, and
// clears the user's cart. Firestore requires every read to precede the first
// write, so the transaction stages all writes until validation completes.
func (r *OrderRepository) CreateOrder(ctx context.Context, req repositories.OrderCreateRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return domain.Order{}, errors.New("order create: order id is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return domain.Order{}, errors.New("order create: user id is required")
	}
	if len(req.Items) == 0 {
		return domain.Order{}, errors.New("order create: at least one item is required")
	}

	now := req.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.create", err)
	}

	var created domain.Order
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		userRef := client.Collection(usersCollection).Doc(req.UserID)
		if _, err := tx.Get(userRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorUserNotFound, fmt.Sprintf("user %s not found", req.UserID), err)
			}
			return err
		}

		// Duplicate product lines draw from the same stock, so track the
		// cumulative quantity per product while validating sequentially.
		type productState struct {
			ref *firestore.DocumentRef
			doc productDocument
		}
		states := make(map[string]*productState)
		items := make([]domain.OrderItem, len(req.Items))
		var total int64

		for i, item := range req.Items {
			productID := strings.TrimSpace(item.ProductID)
			if productID == "" {
				return repositories.NewOrderError(repositories.OrderErrorProductNotFound, "order create: product id is required", nil)
			}
			if item.Quantity <= 0 {
				return repositories.NewOrderError(repositories.OrderErrorUnknown, fmt.Sprintf("order create: quantity for %s must be > 0", productID), nil)
			}

			state, ok := states[productID]
			if !ok {
				ref, err := r.products.DocumentRef(ctx, productID)
				if err != nil {
					return err
				}
				snap, err := tx.Get(ref)
				if err != nil {
					if status.Code(err) == codes.NotFound {
						return repositories.NewOrderError(repositories.OrderErrorProductNotFound, fmt.Sprintf("product %s not found", productID), err)
					}
					return err
				}
				var doc productDocument
				if err := snap.DataTo(&doc); err != nil {
					return fmt.Errorf("decode product %s: %w", productID, err)
				}
				state = &productState{ref: ref, doc: doc}
				states[productID] = state
			}

			if state.doc.Quantity < item.Quantity {
				return repositories.NewOrderError(repositories.OrderErrorInsufficientStock, fmt.Sprintf("insufficient stock for %s", productID), nil)
			}
			state.doc.Quantity -= item.Quantity
			state.doc.UpdatedAt = now

			items[i] = domain.OrderItem{
				ProductID: productID,
				Quantity:  item.Quantity,
				Price:     state.doc.Price * item.Quantity,
			}
			total += items[i].Price
		}

		// Coupon validation and redemption happen against the committed
		// snapshot; the usage increment below keeps the counter within limit.
		var couponID string
		var couponRef *firestore.DocumentRef
		var couponDoc couponDocument
		if code := strings.ToUpper(strings.TrimSpace(req.CouponCode)); code != "" {
			codeRef := client.Collection(couponCodesCollection).Doc(code)
			codeSnap, err := tx.Get(codeRef)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return repositories.NewCouponError(repositories.CouponErrorNotFound, fmt.Sprintf("coupon %s not found", code), err)
				}
				return err
			}
			var codeDoc couponCodeDocument
			if err := codeSnap.DataTo(&codeDoc); err != nil {
				return fmt.Errorf("decode coupon code %s: %w", code, err)
			}

			couponRef, err = r.coupons.DocumentRef(ctx, codeDoc.CouponID)
			if err != nil {
				return err
			}
			couponSnap, err := tx.Get(couponRef)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return repositories.NewCouponError(repositories.CouponErrorNotFound, fmt.Sprintf("coupon %s not found", code), err)
				}
				return err
			}
			if err := couponSnap.DataTo(&couponDoc); err != nil {
				return fmt.Errorf("decode coupon %s: %w", codeDoc.CouponID, err)
			}

			coupon := couponDoc.toDomain(codeDoc.CouponID)
			if coupon.Expired(now) {
				return repositories.NewCouponError(repositories.CouponErrorExpired, fmt.Sprintf("coupon %s expired", code), nil)
			}
			if coupon.Exhausted() {
				return repositories.NewCouponError(repositories.CouponErrorExhausted, fmt.Sprintf("coupon %s usage limit reached", code), nil)
			}

			total -= coupon.Discount(total)
			couponID = coupon.ID
			couponDoc.Used++
			couponDoc.UpdatedAt = now
		}

		// Cart items must be read before the first write as well.
		var cartItemRefs []*firestore.DocumentRef
		if req.ClearCart {
			itemsQuery := client.Collection(cartsCollection).Doc(req.UserID).Collection(cartItemsCollection).Query
			iter := tx.Documents(itemsQuery)
			defer iter.Stop()
			for {
				snap, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					break
				}
				if err != nil {
					return err
				}
				cartItemRefs = append(cartItemRefs, snap.Ref)
			}
		}

		for _, state := range states {
			if err := tx.Set(state.ref, state.doc); err != nil {
				return err
			}
		}
		if couponRef != nil {
			if err := tx.Set(couponRef, couponDoc); err != nil {
				return err
			}
		}

		order := domain.Order{
			ID:              req.OrderID,
			UserID:          req.UserID,
			ShippingAddress: strings.TrimSpace(req.ShippingAddress),
			Status:          domain.OrderStatusPending,
			TotalAmount:     total,
			CouponID:        couponID,
			Items:           items,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		orderRef, err := r.orders.DocumentRef(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if err := tx.Create(orderRef, newOrderDocument(order)); err != nil {
			return err
		}

		for _, ref := range cartItemRefs {
			if err := tx.Delete(ref); err != nil {
				return err
			}
		}

		created = order
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.create", err)
	}
	return created, nil
}

// UpdateStatus transitions the order to the next status. Cancelling a not yet
// cancelled order restores the stock of every line in the same transaction.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus, now time.Time) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order update status: order id is required")
	}
	if !next.Valid() {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorInvalidTransition, fmt.Sprintf("unknown status %q", next), nil)
	}

	now = now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var updated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}

		current := domain.OrderStatus(doc.Status)
		if !current.CanTransitionTo(next) {
			return repositories.NewOrderError(repositories.OrderErrorInvalidTransition, fmt.Sprintf("cannot transition order %s from %s to %s", orderID, current, next), nil)
		}

		type restock struct {
			ref *firestore.DocumentRef
			doc productDocument
		}
		var restocks []restock
		if next == domain.OrderStatusCanceled {
			quantities := make(map[string]int64, len(doc.Items))
			for _, item := range doc.Items {
				quantities[item.ProductID] += item.Quantity
			}
			for productID, qty := range quantities {
				ref, err := r.products.DocumentRef(ctx, productID)
				if err != nil {
					return err
				}
				productSnap, err := tx.Get(ref)
				if err != nil {
					// A product deleted after ordering cannot be restocked.
					if status.Code(err) == codes.NotFound {
						continue
					}
					return err
				}
				var productDoc productDocument
				if err := productSnap.DataTo(&productDoc); err != nil {
					return fmt.Errorf("decode product %s: %w", productID, err)
				}
				productDoc.Quantity += qty
				productDoc.UpdatedAt = now
				restocks = append(restocks, restock{ref: ref, doc: productDoc})
			}
		}

		for _, rs := range restocks {
			if err := tx.Set(rs.ref, rs.doc); err != nil {
				return err
			}
		}

		doc.Status = string(next)
		doc.UpdatedAt = now
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}

		updated = doc.toDomain(orderID)
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.updateStatus", err)
	}
	return updated, nil
}

// FindByID loads an order by its ID.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order find: order id is required")
	}

	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		var repoErr *pfirestore.Error
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
		}
		return domain.Order{}, wrapOrderError("orders.find", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	return r.list(ctx, repositories.OrderListFilter{UserID: userID}, pager)
}

// List returns orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	return r.list(ctx, filter, pager)
}

func (r *OrderRepository) list(ctx context.Context, filter repositories.OrderListFilter, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := pager.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
	}

	query := client.Collection(ordersCollection).Query
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query = query.Where("userId", "==", userID)
	}
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}
	query = query.
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(pager.PageToken); token != "" {
		decoded, err := decodePageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(orders) > pageSize
	if hasMore {
		orders = orders[:pageSize]
	}
	var nextToken string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		encoded, err := encodePageToken(pageToken{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Order]{
		Items:         orders,
		NextPageToken: nextToken,
	}, nil
}

func wrapOrderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var orderErr *repositories.OrderError
	if errors.As(err, &orderErr) {
		if orderErr.Op == "" {
			orderErr.Op = op
		}
		return orderErr
	}
	var couponErr *repositories.CouponError
	if errors.As(err, &couponErr) {
		if couponErr.Op == "" {
			couponErr.Op = op
		}
		return couponErr
	}
	return pfirestore.WrapError(op, err)
}
