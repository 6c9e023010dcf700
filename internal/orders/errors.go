package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSelection     = errors.New("invalid cart selection")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrMissingShipmentInfo  = errors.New("tracking number and courier are required")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrOrderNotFound        = errors.New("order not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrForbidden            = errors.New("forbidden")
	ErrPaymentNotRequired   = errors.New("order does not accept gateway payment")
)

// SelectionError lists the requested cart lines that do not belong to the user.
type SelectionError struct {
	Missing []int64
}

func (e *SelectionError) Error() string {
	ids := make([]string, 0, len(e.Missing))
	for _, id := range e.Missing {
		ids = append(ids, fmt.Sprint(id))
	}
	return fmt.Sprintf("%s: cart items not found: %s", ErrInvalidSelection, strings.Join(ids, ","))
}

func (e *SelectionError) Is(target error) bool { return target == ErrInvalidSelection }

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
