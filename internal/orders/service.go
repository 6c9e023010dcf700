package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/holycat-orders/internal/payment"
	"github.com/google/uuid"
)

// Gateway opens hosted checkout sessions with the payment provider.
type Gateway interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
}

type Service struct {
	log      *slog.Logger
	store    Store
	notifier Notifier
	gateway  Gateway

	now   func() time.Time
	newID func() string
}

func NewService(log *slog.Logger, store Store, notifier Notifier, gateway Gateway) *Service {
	return &Service{
		log:      log,
		store:    store,
		notifier: notifier,
		gateway:  gateway,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// GetOrder returns an order with its items if it belongs to userID.
func (s *Service) GetOrder(ctx context.Context, userID int64, orderID string) (*Order, error) {
	const op = "orders.Service.GetOrder"

	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, userID int64) ([]Order, error) {
	const op = "orders.Service.ListOrders"

	out, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Service) ListAllOrders(ctx context.Context) ([]Order, error) {
	const op = "orders.Service.ListAllOrders"

	out, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// notify runs after commit. Nothing here can fail the caller.
func (s *Service) notify(ctx context.Context, logger *slog.Logger, kind EventKind, o *Order, from Status) {
	if s.notifier == nil {
		return
	}
	user, err := s.store.GetUser(ctx, o.UserID)
	if err != nil {
		logger.Warn("notification skipped: user lookup failed", slog.Any("error", err))
		return
	}
	n := Notification{Kind: kind, Order: *o, User: *user, From: from}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logger.Error("notification failed", slog.String("order_id", o.ID), slog.Any("error", err))
	}
}
