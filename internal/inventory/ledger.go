package inventory

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrProductNotFound   = errors.New("product not found")
)

// ShortageError names the product that could not cover a reservation.
type ShortageError struct {
	ProductID string
	Title     string
	Requested int
	Available int
}

func (e *ShortageError) Error() string {
	name := e.ProductID
	if e.Title != "" {
		name = e.Title
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *ShortageError) Is(target error) bool { return target == ErrInsufficientStock }

// Adjuster is the storage side of the ledger. Implementations run inside the
// caller's transaction; DecrementStock must only apply when stock >= qty and
// report ok=false (with the current stock) otherwise.
type Adjuster interface {
	DecrementStock(ctx context.Context, productID string, qty int) (remaining int, ok bool, err error)
	IncrementStock(ctx context.Context, productID string, qty int) error
}

// Reserve takes qty units of productID out of stock. Nothing is applied when
// the stock cannot cover the request.
func Reserve(ctx context.Context, a Adjuster, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve %s: %w", productID, ErrInvalidQuantity)
	}
	available, ok, err := a.DecrementStock(ctx, productID, qty)
	if err != nil {
		return fmt.Errorf("reserve %s: %w", productID, err)
	}
	if !ok {
		return &ShortageError{ProductID: productID, Requested: qty, Available: available}
	}
	return nil
}

// Release puts qty units back. The caller is trusted to pass a quantity it
// previously reserved.
func Release(ctx context.Context, a Adjuster, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release %s: %w", productID, ErrInvalidQuantity)
	}
	if err := a.IncrementStock(ctx, productID, qty); err != nil {
		return fmt.Errorf("release %s: %w", productID, err)
	}
	return nil
}
