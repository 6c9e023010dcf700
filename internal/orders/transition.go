package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ariefcatur/holycat-orders/internal/inventory"
)

// statusDeleted only appears in TransitionError for refused deletions.
const statusDeleted Status = "DELETED"

// decision is what a caller wants to do with a locked order.
type decision struct {
	to   Status
	in   TransitionInput
	noop bool
}

// apply locks the order, asks decide what to do and, unless it is a no-op,
// runs the state machine, hands stock back on cancellation and writes the new
// status, all in one transaction. changed reports whether a status was written.
func (s *Service) apply(ctx context.Context, orderID string, decide func(o *Order) (decision, error)) (o *Order, from Status, changed bool, err error) {
	err = s.store.WithTx(ctx, func(tx Tx) error {
		cur, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		d, err := decide(cur)
		if err != nil {
			return err
		}
		o, from = cur, cur.Status
		if d.noop {
			return nil
		}
		if err := CheckTransition(cur, d.to, d.in); err != nil {
			return err
		}

		if releasesStock(cur.Status, d.to) {
			items, err := tx.OrderItems(ctx, cur.ID)
			if err != nil {
				return fmt.Errorf("load order items: %w", err)
			}
			for _, it := range items {
				if err := inventory.Release(ctx, tx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
			cur.Items = items
		}
		if cur.Items == nil {
			items, err := tx.OrderItems(ctx, cur.ID)
			if err != nil {
				return fmt.Errorf("load order items: %w", err)
			}
			cur.Items = items
		}

		ok, err := tx.SetStatus(ctx, cur.ID, cur.Status, d.to, d.in.Shipment)
		if err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		if !ok {
			return &TransitionError{From: cur.Status, To: d.to}
		}

		cur.Status = d.to
		cur.UpdatedAt = s.now()
		if d.to == StatusShipped && d.in.Shipment != nil {
			shippedAt := d.in.Shipment.ShippedAt
			cur.TrackingNumber = d.in.Shipment.TrackingNumber
			cur.Courier = d.in.Shipment.Courier
			cur.ShippedAt = &shippedAt
		}
		changed = true
		return nil
	})
	return o, from, changed, err
}

func ownedBy(userID int64) func(o *Order) error {
	return func(o *Order) error {
		if o.UserID != userID {
			return ErrForbidden
		}
		return nil
	}
}

// CancelOrder is the customer cancel action. Reserved units go back to stock
// together with the status change.
func (s *Service) CancelOrder(ctx context.Context, userID int64, orderID string) (*Order, error) {
	const op = "orders.Service.CancelOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("order_id", orderID))

	owner := ownedBy(userID)
	o, from, _, err := s.apply(ctx, orderID, func(o *Order) (decision, error) {
		if err := owner(o); err != nil {
			return decision{}, err
		}
		return decision{to: StatusCancelled, in: TransitionInput{Trigger: TriggerCustomerCancel}}, nil
	})
	if err != nil {
		logger.Warn("cancel rejected", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("order cancelled", slog.String("from", string(from)))
	s.notify(ctx, logger, EventOrderStatusChanged, o, from)
	return o, nil
}

type StatusUpdate struct {
	OrderID        string
	Status         string
	TrackingNumber string
	Courier        string
}

// UpdateStatus is the admin status action. PROCESSING is only reachable from
// AWAITING_PAYMENT as a manual approval of an uploaded payment proof.
func (s *Service) UpdateStatus(ctx context.Context, req StatusUpdate) (*Order, error) {
	const op = "orders.Service.UpdateStatus"
	logger := s.log.With(slog.String("op", op), slog.String("order_id", req.OrderID), slog.String("status", req.Status))

	to, err := ParseStatus(req.Status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	in := TransitionInput{Trigger: TriggerAdmin}
	switch to {
	case StatusProcessing:
		in.Trigger = TriggerProofApproved
	case StatusShipped:
		in.Shipment = &Shipment{
			TrackingNumber: strings.TrimSpace(req.TrackingNumber),
			Courier:        strings.TrimSpace(req.Courier),
			ShippedAt:      s.now(),
		}
	}

	o, from, _, err := s.apply(ctx, req.OrderID, func(o *Order) (decision, error) {
		return decision{to: to, in: in}, nil
	})
	if err != nil {
		logger.Warn("status update rejected", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("order status updated", slog.String("from", string(from)))
	s.notify(ctx, logger, EventOrderStatusChanged, o, from)
	return o, nil
}

// ApprovePayment accepts the uploaded proof of a bank transfer.
func (s *Service) ApprovePayment(ctx context.Context, orderID string) (*Order, error) {
	return s.UpdateStatus(ctx, StatusUpdate{OrderID: orderID, Status: string(StatusProcessing)})
}

// SubmitPaymentProof attaches a proof-of-payment URL to a bank transfer order
// that is still waiting for payment. Gateway orders are settled by the gateway.
func (s *Service) SubmitPaymentProof(ctx context.Context, userID int64, orderID, url string) (*Order, error) {
	const op = "orders.Service.SubmitPaymentProof"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("order_id", orderID))

	var out *Order
	err := s.store.WithTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrForbidden
		}
		if o.Status != StatusAwaitingPayment || o.PaymentMethod != PaymentBankTransfer {
			return &TransitionError{From: o.Status, To: StatusAwaitingPayment}
		}
		if err := tx.SetPaymentProof(ctx, o.ID, url); err != nil {
			return fmt.Errorf("set payment proof: %w", err)
		}
		o.PaymentProofURL = url
		o.UpdatedAt = s.now()
		out = o
		return nil
	})
	if err != nil {
		logger.Warn("payment proof rejected", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("payment proof submitted")
	return out, nil
}

// DeleteOrder removes a completed or cancelled order owned by userID. Stock was
// already settled when the order reached its terminal status.
func (s *Service) DeleteOrder(ctx context.Context, userID int64, orderID string) error {
	const op = "orders.Service.DeleteOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("order_id", orderID))

	err := s.store.WithTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrForbidden
		}
		if !CanDelete(o.Status) {
			return &TransitionError{From: o.Status, To: statusDeleted}
		}
		return tx.DeleteOrder(ctx, o.ID)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrForbidden) {
			logger.Warn("delete rejected", slog.Any("error", err))
		} else {
			logger.Error("delete failed", slog.Any("error", err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("order deleted")
	return nil
}
