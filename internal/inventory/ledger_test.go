package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ariefcatur/holycat-orders/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStock struct {
	mu    sync.Mutex
	stock map[string]int
	err   error
}

func (f *fakeStock) DecrementStock(ctx context.Context, productID string, qty int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, false, f.err
	}
	cur, ok := f.stock[productID]
	if !ok {
		return 0, false, inventory.ErrProductNotFound
	}
	if cur < qty {
		return cur, false, nil
	}
	f.stock[productID] = cur - qty
	return cur - qty, true, nil
}

func (f *fakeStock) IncrementStock(ctx context.Context, productID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stock[productID] += qty
	return nil
}

func TestReserve_Success(t *testing.T) {
	s := &fakeStock{stock: map[string]int{"p1": 3}}

	err := inventory.Reserve(context.Background(), s, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, s.stock["p1"])
}

func TestReserve_Insufficient(t *testing.T) {
	s := &fakeStock{stock: map[string]int{"p1": 1}}

	err := inventory.Reserve(context.Background(), s, "p1", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var short *inventory.ShortageError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, "p1", short.ProductID)
	assert.Equal(t, 2, short.Requested)
	assert.Equal(t, 1, short.Available)
	assert.Equal(t, 1, s.stock["p1"], "stock must not change on a rejected reservation")
}

func TestReserve_InvalidQuantity(t *testing.T) {
	s := &fakeStock{stock: map[string]int{"p1": 5}}

	assert.ErrorIs(t, inventory.Reserve(context.Background(), s, "p1", 0), inventory.ErrInvalidQuantity)
	assert.ErrorIs(t, inventory.Release(context.Background(), s, "p1", -1), inventory.ErrInvalidQuantity)
	assert.Equal(t, 5, s.stock["p1"])
}

func TestReserve_StorageError(t *testing.T) {
	boom := errors.New("connection reset")
	s := &fakeStock{stock: map[string]int{}, err: boom}

	err := inventory.Reserve(context.Background(), s, "p1", 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestRelease_NoUpperBound(t *testing.T) {
	s := &fakeStock{stock: map[string]int{"p1": 0}}

	require.NoError(t, inventory.Release(context.Background(), s, "p1", 7))
	assert.Equal(t, 7, s.stock["p1"])
}

func TestReserve_ConcurrentLastUnit(t *testing.T) {
	s := &fakeStock{stock: map[string]int{"p1": 1}}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- inventory.Reserve(context.Background(), s, "p1", 1)
		}()
	}
	wg.Wait()
	close(results)

	var ok, short int
	for err := range results {
		if err == nil {
			ok++
		} else if errors.Is(err, inventory.ErrInsufficientStock) {
			short++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.Equal(t, 0, s.stock["p1"])
}
