package httpx

import (
	"context"

	"github.com/ariefcatur/holycat-orders/internal/orders"
	"github.com/ariefcatur/holycat-orders/internal/payment"
	"github.com/ariefcatur/holycat-orders/internal/redisx"
)

type OrderService interface {
	Checkout(ctx context.Context, req orders.CheckoutRequest) (string, error)
	GetOrder(ctx context.Context, userID int64, orderID string) (*orders.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]orders.Order, error)
	CancelOrder(ctx context.Context, userID int64, orderID string) (*orders.Order, error)
	SubmitPaymentProof(ctx context.Context, userID int64, orderID, url string) (*orders.Order, error)
	DeleteOrder(ctx context.Context, userID int64, orderID string) error
}

type PaymentService interface {
	CreatePaymentSession(ctx context.Context, userID int64, orderID string) (*payment.Session, error)
	Reconcile(ctx context.Context, n payment.Notification) (bool, error)
}

type AdminService interface {
	ListAllOrders(ctx context.Context) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, req orders.StatusUpdate) (*orders.Order, error)
	ApprovePayment(ctx context.Context, orderID string) (*orders.Order, error)
}

// Idempotency remembers the order created for a client supplied key.
type Idempotency interface {
	ClaimIdempotency(ctx context.Context, userID int64, key string) (orderID string, claimed bool, err error)
	CompleteIdempotency(ctx context.Context, userID int64, key, orderID string) error
	ReleaseIdempotency(ctx context.Context, userID int64, key string) error
}

type StatusCache interface {
	CachedStatus(ctx context.Context, orderID string) (redisx.StatusEntry, bool, error)
	CacheStatus(ctx context.Context, orderID string, e redisx.StatusEntry) (bool, error)
	DropStatus(ctx context.Context, orderID string) error
}

type Deduper interface {
	FirstSeen(ctx context.Context, scope, id string) (bool, error)
	Forget(ctx context.Context, scope, id string) error
}
