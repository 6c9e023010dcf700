package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/holycat-orders/internal/payment"
	"github.com/shopspring/decimal"
)

var ErrAmountMismatch = errors.New("gross amount does not match order total")

// Reconcile applies a gateway notification to its order. Redelivery of a
// notification whose outcome the order already reflects is a no-op. The
// returned error is for logging only; the gateway is acknowledged either way.
func (s *Service) Reconcile(ctx context.Context, n payment.Notification) (changed bool, err error) {
	const op = "orders.Service.Reconcile"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("reference", n.Reference),
		slog.String("outcome", string(n.Outcome)),
		slog.String("risk", string(n.Risk)),
	)

	orderID, err := payment.ParseReference(n.Reference)
	if err != nil {
		logger.Warn("notification ignored", slog.Any("error", err))
		return false, fmt.Errorf("%s: %w", op, err)
	}
	logger = logger.With(slog.String("order_id", orderID))
	result := payment.Resolve(n.Outcome, n.Risk)

	o, from, changed, err := s.apply(ctx, orderID, func(o *Order) (decision, error) {
		if n.GrossAmount.Valid && !n.GrossAmount.Decimal.Equal(decimal.NewFromInt(o.Total)) {
			return decision{}, fmt.Errorf("%w: got %s, want %d", ErrAmountMismatch, n.GrossAmount.Decimal, o.Total)
		}
		var d decision
		switch result {
		case payment.ResultPaid:
			d = decision{to: StatusProcessing, in: TransitionInput{Trigger: TriggerGatewaySettled, RiskAccepted: true}}
		case payment.ResultFailed:
			d = decision{to: StatusCancelled, in: TransitionInput{Trigger: TriggerGatewayFailed}}
		default:
			return decision{noop: true}, nil
		}
		if o.Status == d.to {
			d.noop = true
		}
		return d, nil
	})
	if err != nil {
		logger.Warn("notification not applied", slog.Any("error", err))
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !changed {
		logger.Info("notification acknowledged without change", slog.String("result", result.String()), slog.String("status", string(from)))
		return false, nil
	}

	logger.Info("payment reconciled", slog.String("from", string(from)), slog.String("to", string(o.Status)))
	s.notify(ctx, logger, EventOrderStatusChanged, o, from)
	return true, nil
}

// CreatePaymentSession opens a gateway checkout session for an order waiting
// on a gateway payment. The order itself is not modified.
func (s *Service) CreatePaymentSession(ctx context.Context, userID int64, orderID string) (*payment.Session, error) {
	const op = "orders.Service.CreatePaymentSession"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("order_id", orderID))

	if s.gateway == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrPaymentNotRequired)
	}
	o, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusAwaitingPayment || o.PaymentMethod != PaymentMidtrans {
		return nil, fmt.Errorf("%s: %w", op, ErrPaymentNotRequired)
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: load user: %w", op, err)
	}

	req := payment.SessionRequest{
		Reference:     payment.NewReference(o.ID, s.now()),
		GrossAmount:   o.Total,
		CustomerEmail: user.Email,
		CustomerName:  user.Name,
	}
	for _, it := range o.Items {
		req.Items = append(req.Items, payment.SessionItem{
			ID:       it.ProductID,
			Name:     it.ProductTitle,
			Price:    it.UnitPrice,
			Quantity: it.Quantity,
		})
	}

	sess, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		logger.Error("gateway session failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("gateway session created", slog.String("reference", req.Reference))
	return sess, nil
}
