package orders

import (
	"context"

	"github.com/ariefcatur/holycat-orders/internal/inventory"
)

// Store is the persisted order/inventory state. Mutations only happen through
// WithTx; fn's error rolls the whole unit back.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	GetUser(ctx context.Context, id int64) (*User, error)
}

// Tx is one open unit of work.
type Tx interface {
	inventory.Adjuster

	// LoadCartLines returns the subset of ids owned by userID, joined with
	// their product and locking the product rows.
	LoadCartLines(ctx context.Context, userID int64, ids []int64) ([]CartLine, error)
	DeleteCartLines(ctx context.Context, userID int64, ids []int64) error

	InsertOrder(ctx context.Context, o *Order) error
	InsertOrderItems(ctx context.Context, items []OrderItem) error
	// LockOrder loads the order and holds it until the unit ends.
	LockOrder(ctx context.Context, id string) (*Order, error)
	OrderItems(ctx context.Context, orderID string) ([]OrderItem, error)
	// SetStatus moves id from -> to only if it is still in from.
	SetStatus(ctx context.Context, id string, from, to Status, ship *Shipment) (bool, error)
	SetPaymentProof(ctx context.Context, id, url string) error
	DeleteOrder(ctx context.Context, id string) error
}
