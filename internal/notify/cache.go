package notify

import (
	"context"

	"github.com/ariefcatur/holycat-orders/internal/orders"
	"github.com/ariefcatur/holycat-orders/internal/redisx"
)

type statusWriter interface {
	CacheStatus(ctx context.Context, orderID string, e redisx.StatusEntry) (bool, error)
}

// StatusCache refreshes the cached order status after each transition. A
// notifier that arrives after a later transition leaves the cache alone.
type StatusCache struct {
	cache statusWriter
}

func NewStatusCache(cache statusWriter) *StatusCache {
	return &StatusCache{cache: cache}
}

func (c *StatusCache) Notify(ctx context.Context, n orders.Notification) error {
	_, err := c.cache.CacheStatus(ctx, n.Order.ID, redisx.StatusEntry{
		OrderID:   n.Order.ID,
		UserID:    n.Order.UserID,
		Status:    string(n.Order.Status),
		Rank:      n.Order.Status.Rank(),
		UpdatedAt: n.Order.UpdatedAt,
	})
	return err
}
