package orders

import (
	"context"
	"encoding/json"
	"time"
)

type EventKind string

const (
	EventOrderCreated       EventKind = "OrderCreated"
	EventOrderStatusChanged EventKind = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     EventKind       `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title,omitempty"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unit_price"`
}

// StatusChangedPayload is the payload of both event kinds; From is empty for
// OrderCreated.
type StatusChangedPayload struct {
	OrderID        string        `json:"order_id"`
	UserID         int64         `json:"user_id"`
	UserEmail      string        `json:"user_email"`
	UserName       string        `json:"user_name,omitempty"`
	From           Status        `json:"from,omitempty"`
	To             Status        `json:"to"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	Total          int64         `json:"total"`
	TrackingNumber string        `json:"tracking_number,omitempty"`
	Courier        string        `json:"courier,omitempty"`
	Items          []ItemPrice   `json:"items,omitempty"`
}

// Notification is handed to the Notifier after a transition committed.
type Notification struct {
	Kind  EventKind
	Order Order
	User  User
	From  Status
}

// Payload flattens the notification for the wire.
func (n Notification) Payload() StatusChangedPayload {
	p := StatusChangedPayload{
		OrderID:        n.Order.ID,
		UserID:         n.Order.UserID,
		UserEmail:      n.User.Email,
		UserName:       n.User.Name,
		From:           n.From,
		To:             n.Order.Status,
		PaymentMethod:  n.Order.PaymentMethod,
		Total:          n.Order.Total,
		TrackingNumber: n.Order.TrackingNumber,
		Courier:        n.Order.Courier,
	}
	for _, it := range n.Order.Items {
		p.Items = append(p.Items, ItemPrice{ProductID: it.ProductID, Title: it.ProductTitle, Qty: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return p
}

// Notifier is the post-commit side channel. Errors are logged by the caller
// and never undo the transition.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
