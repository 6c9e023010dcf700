package notify

import (
	"context"
	"errors"

	"github.com/ariefcatur/holycat-orders/internal/orders"
)

// Fanout calls every notifier and joins their errors.
type Fanout []orders.Notifier

func (f Fanout) Notify(ctx context.Context, n orders.Notification) error {
	var errs []error
	for _, nt := range f {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
