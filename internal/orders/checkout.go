package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ariefcatur/holycat-orders/internal/inventory"
)

type CheckoutRequest struct {
	UserID        int64
	PaymentMethod PaymentMethod
	CartLineIDs   []int64
}

// Checkout turns the selected cart lines into an order. Pricing uses the
// current catalog price; stock is reserved and the lines removed from the
// cart in the same transaction as the order insert.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (string, error) {
	const op = "orders.Service.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", req.UserID))

	method, err := ParsePaymentMethod(string(req.PaymentMethod))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	ids, err := normalizeSelection(req.CartLineIDs)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var order *Order
	err = s.store.WithTx(ctx, func(tx Tx) error {
		lines, err := tx.LoadCartLines(ctx, req.UserID, ids)
		if err != nil {
			return fmt.Errorf("load cart lines: %w", err)
		}
		if missing := missingLines(ids, lines); len(missing) > 0 {
			return &SelectionError{Missing: missing}
		}

		for _, l := range lines {
			if l.Product.Stock < l.Quantity {
				return &inventory.ShortageError{
					ProductID: l.ProductID,
					Title:     l.Product.Title,
					Requested: l.Quantity,
					Available: l.Product.Stock,
				}
			}
		}

		now := s.now()
		o := &Order{
			ID:            s.newID(),
			UserID:        req.UserID,
			Status:        InitialStatus(method),
			PaymentMethod: method,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		items := make([]OrderItem, 0, len(lines))
		for _, l := range lines {
			o.Total += int64(l.Quantity) * l.Product.Price
			items = append(items, OrderItem{
				OrderID:      o.ID,
				ProductID:    l.ProductID,
				ProductTitle: l.Product.Title,
				Quantity:     l.Quantity,
				UnitPrice:    l.Product.Price,
			})
		}

		if err := tx.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := tx.InsertOrderItems(ctx, items); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		for _, l := range lines {
			if err := inventory.Reserve(ctx, tx, l.ProductID, l.Quantity); err != nil {
				var short *inventory.ShortageError
				if errors.As(err, &short) {
					short.Title = l.Product.Title
				}
				return err
			}
		}
		if err := tx.DeleteCartLines(ctx, req.UserID, ids); err != nil {
			return fmt.Errorf("delete cart lines: %w", err)
		}

		o.Items = items
		order = o
		return nil
	})
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) || errors.Is(err, ErrInvalidSelection) {
			logger.Warn("checkout rejected", slog.Any("error", err))
		} else {
			logger.Error("checkout failed", slog.Any("error", err))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("order created",
		slog.String("order_id", order.ID),
		slog.String("status", string(order.Status)),
		slog.Int64("total", order.Total),
	)
	s.notify(ctx, logger, EventOrderCreated, order, "")
	return order.ID, nil
}

// normalizeSelection rejects empty, non-positive and repeated ids and returns
// them sorted.
func normalizeSelection(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no cart items selected", ErrInvalidSelection)
	}
	out := make([]int64, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	for i, id := range out {
		if id <= 0 {
			return nil, fmt.Errorf("%w: invalid cart item id %d", ErrInvalidSelection, id)
		}
		if i > 0 && out[i-1] == id {
			return nil, fmt.Errorf("%w: duplicate cart item id %d", ErrInvalidSelection, id)
		}
	}
	return out, nil
}

func missingLines(ids []int64, lines []CartLine) []int64 {
	found := make(map[int64]bool, len(lines))
	for _, l := range lines {
		found[l.ID] = true
	}
	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
