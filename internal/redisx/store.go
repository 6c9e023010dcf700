package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idemPending = "pending"

// Store holds the short lived keys of the API and the notifier. Postgres
// stays the source of truth; every key here can be lost without harm.
type Store struct {
	rdb redis.Cmdable
}

func NewStore(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

// ClaimIdempotency reserves key for userID. When another request already
// claimed it, claimed is false and orderID holds its result, or is empty
// while that request is still running.
func (s *Store) ClaimIdempotency(ctx context.Context, userID int64, key string) (orderID string, claimed bool, err error) {
	k := fmt.Sprintf(KeyIdemOrderCreate, userID, key)
	ok, err := s.rdb.SetNX(ctx, k, idemPending, TTLIdempotency).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim %s: %w", k, err)
	}
	if ok {
		return "", true, nil
	}
	v, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", k, err)
	}
	if v == idemPending {
		return "", false, nil
	}
	return v, false, nil
}

func (s *Store) CompleteIdempotency(ctx context.Context, userID int64, key, orderID string) error {
	return s.rdb.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key), orderID, TTLIdempotency).Err()
}

// ReleaseIdempotency frees a claim whose request failed so the client may retry.
func (s *Store) ReleaseIdempotency(ctx context.Context, userID int64, key string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key)).Err()
}

// StatusEntry is the cached status of one order. Rank grows with every
// transition, so a higher rank is always the newer entry.
type StatusEntry struct {
	OrderID   string    `json:"order_id"`
	UserID    int64     `json:"user_id"`
	Status    string    `json:"status"`
	Rank      int       `json:"rank"`
	UpdatedAt time.Time `json:"updated_at"`
}

// cacheStatusScript writes ARGV[1] unless the stored entry has a higher rank.
var cacheStatusScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, e = pcall(cjson.decode, cur)
	if ok and type(e) == 'table' and tonumber(e.rank) and tonumber(e.rank) > tonumber(ARGV[2]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// CacheStatus stores e unless a later status is already cached. stored
// reports whether the write happened.
func (s *Store) CacheStatus(ctx context.Context, orderID string, e StatusEntry) (stored bool, err error) {
	b, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	n, err := cacheStatusScript.Run(ctx, s.rdb, []string{fmt.Sprintf(KeyOrderStatus, orderID)},
		string(b), e.Rank, TTLStatusCache.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("cache status %s: %w", orderID, err)
	}
	return n == 1, nil
}

func (s *Store) CachedStatus(ctx context.Context, orderID string) (StatusEntry, bool, error) {
	var e StatusEntry
	b, err := s.rdb.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false, err
	}
	return e, true, nil
}

func (s *Store) DropStatus(ctx context.Context, orderID string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}

// FirstSeen marks id as processed within scope and reports whether this
// call was the first to do so.
func (s *Store) FirstSeen(ctx context.Context, scope, id string) (bool, error) {
	return s.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, scope, id), time.Now().UTC().Format(time.RFC3339), TTLDedup).Result()
}

// Forget undoes FirstSeen when processing failed and must be retried.
func (s *Store) Forget(ctx context.Context, scope, id string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeyDedup, scope, id)).Err()
}
