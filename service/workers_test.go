package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunWorkerPoolKeepsInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	results := runWorkerPool(context.Background(), 3, items, func(_ context.Context, v int) int {
		time.Sleep(time.Duration(v) * time.Millisecond)
		return v * 10
	})
	require.Equal(t, []int{50, 10, 40, 20, 30}, results)
}

func TestRunWorkerPoolBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int64
	items := make([]int, 12)
	runWorkerPool(context.Background(), 4, items, func(context.Context, int) struct{} {
		n := running.Add(1)
		for {
			cur := peak.Load()
			if n <= cur || peak.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}
	})
	require.LessOrEqual(t, peak.Load(), int64(4))
}

func TestRunWorkerPoolSettlesEveryItemAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int64
	results := runWorkerPool(ctx, 2, []string{"a", "b", "c"}, func(ctx context.Context, v string) error {
		calls.Add(1)
		return ctx.Err()
	})
	require.Equal(t, int64(3), calls.Load())
	for _, err := range results {
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestRunWorkerPoolEmpty(t *testing.T) {
	results := runWorkerPool(context.Background(), 4, []int(nil), func(context.Context, int) int { return 1 })
	require.Empty(t, results)
}
