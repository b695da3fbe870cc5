package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/ordercraft/api/internal/domain"
	"github.com/ordercraft/api/internal/platform/events"
	"github.com/ordercraft/api/internal/platform/requestctx"
	"github.com/ordercraft/api/internal/repositories"
)

const orderIDPrefix = "ord_"

var (
	// ErrOrderInvalidInput indicates validation failures for order operations.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderUserNotFound indicates the ordering user has no profile record.
	ErrOrderUserNotFound = errors.New("order: user not found")
	// ErrOrderUnauthorized indicates the actor may not access the order.
	ErrOrderUnauthorized = errors.New("order: unauthorized")
	// ErrOrderOutOfStock indicates a line requested more units than are on hand.
	ErrOrderOutOfStock = errors.New("order: insufficient stock")
	// ErrOrderProductNotFound indicates a line references an unknown product.
	ErrOrderProductNotFound = errors.New("order: product not found")
	// ErrOrderInvalidTransition indicates a disallowed status change.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderConflict signals a storage conflict that exhausted its retries.
	ErrOrderConflict = errors.New("order: conflict")
)

// OrderServiceDeps bundles collaborators required to construct an OrderService.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Events      events.Publisher
}

type orderService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	clock    func() time.Time
	newID    func() string
	events   events.Publisher
}

var _ OrderService = (*orderService)(nil)

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return orderIDPrefix + ulid.Make().String()
		}
	}
	publisher := deps.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &orderService{
		orders:   deps.Orders,
		products: deps.Products,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: publisher,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if err := validateCreateOrderCommand(cmd); err != nil {
		return Order{}, err
	}

	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		items[i] = domain.OrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
		}
	}

	order, err := s.orders.CreateOrder(ctx, repositories.OrderCreateRequest{
		OrderID:         s.newID(),
		UserID:          cmd.UserID,
		ShippingAddress: strings.TrimSpace(cmd.ShippingAddress),
		Items:           items,
		CouponCode:      strings.TrimSpace(cmd.CouponCode),
		ClearCart:       true,
		Now:             s.clock(),
	})
	if err != nil {
		return Order{}, s.mapOrderError(err)
	}

	s.emitOrderEvent(ctx, events.EventOrderCreated, order)

	return order, nil
}

func (s *orderService) Get(ctx context.Context, cmd GetOrderCommand) (Order, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, s.mapOrderError(err)
	}
	if !cmd.AllowStaff && order.UserID != cmd.ActorID {
		return Order{}, ErrOrderUnauthorized
	}

	s.enrichItems(ctx, []domain.Order{order})
	return order, nil
}

func (s *orderService) ListByUser(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Order], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	page, err := s.orders.ListByUser(ctx, userID, pager)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapOrderError(err)
	}
	s.enrichItems(ctx, page.Items)
	return page, nil
}

func (s *orderService) List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, filter.Status)
	}
	page, err := s.orders.List(ctx, repositories.OrderListFilter{
		UserID: strings.TrimSpace(filter.UserID),
		Status: filter.Status,
	}, filter.Pagination)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapOrderError(err)
	}
	s.enrichItems(ctx, page.Items)
	return page, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd TransitionOrderCommand) (Order, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !cmd.Next.Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Next)
	}

	order, err := s.orders.UpdateStatus(ctx, cmd.OrderID, cmd.Next, s.clock())
	if err != nil {
		return Order{}, s.mapOrderError(err)
	}

	event := events.EventOrderStatusChanged
	if cmd.Next == domain.OrderStatusCanceled {
		event = events.EventOrderCanceled
	}
	s.emitOrderEvent(ctx, event, order)

	return order, nil
}

// enrichItems fills product display fields on order lines. Lookups are best
// effort; a deleted product leaves the line with its snapshot only.
func (s *orderService) enrichItems(ctx context.Context, orders []domain.Order) {
	cache := make(map[string]domain.Product)
	for oi := range orders {
		for ii := range orders[oi].Items {
			item := &orders[oi].Items[ii]
			product, ok := cache[item.ProductID]
			if !ok {
				loaded, err := s.products.FindByID(ctx, item.ProductID)
				if err != nil {
					continue
				}
				cache[item.ProductID] = loaded
				product = loaded
			}
			item.ProductName = product.Name
			item.ProductImage = product.ImageURL
		}
	}
}

func (s *orderService) emitOrderEvent(ctx context.Context, event string, order domain.Order) {
	_, err := s.events.PublishOrderEvent(ctx, events.OrderEvent{
		Event:       event,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		CouponID:    order.CouponID,
		OccurredAt:  s.clock(),
	})
	if err != nil {
		requestctx.Logger(ctx).Warn("order event publish failed",
			zap.String("event", event),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func (s *orderService) mapOrderError(err error) error {
	if err == nil {
		return nil
	}

	var orderErr *repositories.OrderError
	if errors.As(err, &orderErr) {
		switch orderErr.Code {
		case repositories.OrderErrorNotFound:
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderErr.Message)
		case repositories.OrderErrorUserNotFound:
			return fmt.Errorf("%w: %s", ErrOrderUserNotFound, orderErr.Message)
		case repositories.OrderErrorProductNotFound:
			return fmt.Errorf("%w: %s", ErrOrderProductNotFound, orderErr.Message)
		case repositories.OrderErrorInsufficientStock:
			return fmt.Errorf("%w: %s", ErrOrderOutOfStock, orderErr.Message)
		case repositories.OrderErrorInvalidTransition:
			return fmt.Errorf("%w: %s", ErrOrderInvalidTransition, orderErr.Message)
		}
		return err
	}

	var couponErr *repositories.CouponError
	if errors.As(err, &couponErr) {
		return mapCouponRepositoryError(couponErr)
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		}
	}
	return err
}

func validateCreateOrderCommand(cmd CreateOrderCommand) error {
	if strings.TrimSpace(cmd.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.ShippingAddress) == "" {
		return fmt.Errorf("%w: shipping address is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrOrderInvalidInput)
	}
	for i, item := range cmd.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("%w: item %d is missing a product id", ErrOrderInvalidInput, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", ErrOrderInvalidInput, i)
		}
	}
	return nil
}
