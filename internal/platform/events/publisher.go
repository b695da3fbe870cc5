package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
)

// Event names published on the order and review topics.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCanceled      = "order.canceled"
	EventReviewCreated      = "review.created"
)

// OrderEvent is the payload published for order lifecycle changes.
type OrderEvent struct {
	Event       string    `json:"event"`
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status"`
	TotalAmount int64     `json:"totalAmount"`
	CouponID    string    `json:"couponId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// ReviewEvent is the payload published when a review is written.
type ReviewEvent struct {
	Event      string    `json:"event"`
	ReviewID   string    `json:"reviewId"`
	ProductID  string    `json:"productId"`
	UserID     string    `json:"userId"`
	Rating     int       `json:"rating"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher emits domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error)
	PublishReviewEvent(ctx context.Context, event ReviewEvent) (string, error)
}

// PubSubPublisher publishes domain events to Pub/Sub topics.
type PubSubPublisher struct {
	orderTopic  *pubsub.Topic
	reviewTopic *pubsub.Topic
	marshal     func(any) ([]byte, error)
}

// NewPubSubPublisher constructs a Pub/Sub backed event publisher.
func NewPubSubPublisher(orderTopic, reviewTopic *pubsub.Topic) (*PubSubPublisher, error) {
	if orderTopic == nil {
		return nil, errors.New("pubsub publisher: order topic is required")
	}
	if reviewTopic == nil {
		return nil, errors.New("pubsub publisher: review topic is required")
	}
	return &PubSubPublisher{
		orderTopic:  orderTopic,
		reviewTopic: reviewTopic,
		marshal:     json.Marshal,
	}, nil
}

// PublishOrderEvent enqueues an order event message on the order topic.
func (p *PubSubPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error) {
	if p == nil || p.orderTopic == nil {
		return "", errors.New("pubsub publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal order event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "event", event.Event)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "userId", event.UserID)
	setAttr(attrs, "status", event.Status)

	result := p.orderTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish order event: %w", err)
	}
	return id, nil
}

// PublishReviewEvent enqueues a review event message on the review topic.
func (p *PubSubPublisher) PublishReviewEvent(ctx context.Context, event ReviewEvent) (string, error) {
	if p == nil || p.reviewTopic == nil {
		return "", errors.New("pubsub publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal review event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "event", event.Event)
	setAttr(attrs, "reviewId", event.ReviewID)
	setAttr(attrs, "productId", event.ProductID)
	setAttr(attrs, "userId", event.UserID)

	result := p.reviewTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish review event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

// NopPublisher drops all events. Used when event publishing is disabled.
type NopPublisher struct{}

// PublishOrderEvent implements Publisher.
func (NopPublisher) PublishOrderEvent(context.Context, OrderEvent) (string, error) {
	return "", nil
}

// PublishReviewEvent implements Publisher.
func (NopPublisher) PublishReviewEvent(context.Context, ReviewEvent) (string, error) {
	return "", nil
}
