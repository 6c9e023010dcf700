package redisx

import "time"

const (
	// idem:order:create:{user_id}:{idempotency_key} -> order_id, or "pending" while running
	KeyIdemOrderCreate = "idem:order:create:%d:%s"

	// order_status:{order_id} -> StatusEntry JSON
	KeyOrderStatus = "order_status:%s"

	// dedup:{scope}:{id}; id is an event id or transaction_id:outcome
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
