package redisx_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ariefcatur/holycat-orders/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreSuite runs against a real Redis named by TEST_REDIS_ADDR.
type StoreSuite struct {
	suite.Suite
	rdb   *redis.Client
	store *redisx.Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	suite.Run(t, &StoreSuite{rdb: redis.NewClient(&redis.Options{Addr: addr})})
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = redisx.NewStore(s.rdb)
	require.NoError(s.T(), s.rdb.Ping(s.ctx).Err())
}

func (s *StoreSuite) TearDownSuite() {
	_ = s.rdb.Close()
}

func (s *StoreSuite) TestIdempotencyLifecycle() {
	key := uuid.NewString()

	_, claimed, err := s.store.ClaimIdempotency(s.ctx, 7, key)
	s.Require().NoError(err)
	s.True(claimed)

	orderID, claimed, err := s.store.ClaimIdempotency(s.ctx, 7, key)
	s.Require().NoError(err)
	s.False(claimed)
	s.Empty(orderID, "first request still running")

	s.Require().NoError(s.store.CompleteIdempotency(s.ctx, 7, key, "order-1"))
	orderID, claimed, err = s.store.ClaimIdempotency(s.ctx, 7, key)
	s.Require().NoError(err)
	s.False(claimed)
	s.Equal("order-1", orderID)

	_, claimed, err = s.store.ClaimIdempotency(s.ctx, 8, key)
	s.Require().NoError(err)
	s.True(claimed, "keys are scoped per user")

	s.Require().NoError(s.store.ReleaseIdempotency(s.ctx, 8, key))
	_, claimed, err = s.store.ClaimIdempotency(s.ctx, 8, key)
	s.Require().NoError(err)
	s.True(claimed)
}

func (s *StoreSuite) TestStatusCache() {
	id := uuid.NewString()
	_, ok, err := s.store.CachedStatus(s.ctx, id)
	s.Require().NoError(err)
	s.False(ok)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stored, err := s.store.CacheStatus(s.ctx, id, redisx.StatusEntry{OrderID: id, UserID: 9, Status: "PACKED", Rank: 3, UpdatedAt: at})
	s.Require().NoError(err)
	s.True(stored)
	e, ok, err := s.store.CachedStatus(s.ctx, id)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("PACKED", e.Status)
	s.Equal(int64(9), e.UserID)
	s.True(at.Equal(e.UpdatedAt))

	ttl, err := s.rdb.TTL(s.ctx, fmt.Sprintf(redisx.KeyOrderStatus, id)).Result()
	s.Require().NoError(err)
	s.LessOrEqual(ttl, redisx.TTLStatusCache)

	s.Require().NoError(s.store.DropStatus(s.ctx, id))
	_, ok, err = s.store.CachedStatus(s.ctx, id)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreSuite) TestStatusCacheKeepsLaterStatus() {
	id := uuid.NewString()

	stored, err := s.store.CacheStatus(s.ctx, id, redisx.StatusEntry{OrderID: id, UserID: 9, Status: "PROCESSING", Rank: 2})
	s.Require().NoError(err)
	s.True(stored)

	stored, err = s.store.CacheStatus(s.ctx, id, redisx.StatusEntry{OrderID: id, UserID: 9, Status: "AWAITING_PAYMENT", Rank: 1})
	s.Require().NoError(err)
	s.False(stored)
	e, _, err := s.store.CachedStatus(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("PROCESSING", e.Status)

	stored, err = s.store.CacheStatus(s.ctx, id, redisx.StatusEntry{OrderID: id, UserID: 9, Status: "PROCESSING", Rank: 2})
	s.Require().NoError(err)
	s.True(stored, "same status refreshes the entry")

	stored, err = s.store.CacheStatus(s.ctx, id, redisx.StatusEntry{OrderID: id, UserID: 9, Status: "PACKED", Rank: 3})
	s.Require().NoError(err)
	s.True(stored)
	e, _, err = s.store.CachedStatus(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("PACKED", e.Status)
}

func (s *StoreSuite) TestFirstSeen() {
	id := uuid.NewString()
	first, err := s.store.FirstSeen(s.ctx, "webhook", id)
	s.Require().NoError(err)
	s.True(first)

	first, err = s.store.FirstSeen(s.ctx, "webhook", id)
	s.Require().NoError(err)
	s.False(first)

	first, err = s.store.FirstSeen(s.ctx, "notifier", id)
	s.Require().NoError(err)
	s.True(first)

	s.Require().NoError(s.store.Forget(s.ctx, "webhook", id))
	first, err = s.store.FirstSeen(s.ctx, "webhook", id)
	s.Require().NoError(err)
	s.True(first)
}
