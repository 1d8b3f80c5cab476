package service

import (
	"context"
	"sync"
)

// runWorkerPool applies fn to every item using at most slots goroutines and
// returns one result per item in input order. It never aborts early: once
// started, each item runs to completion and fn is expected to honour ctx.
func runWorkerPool[T, R any](ctx context.Context, slots int, items []T, fn func(context.Context, T) R) []R {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if slots <= 1 || len(items) == 1 {
		for i, item := range items {
			results[i] = fn(ctx, item)
		}
		return results
	}
	if slots > len(items) {
		slots = len(items)
	}

	tasks := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range tasks {
			results[idx] = fn(ctx, items[idx])
		}
	}

	for i := 0; i < slots; i++ {
		wg.Add(1)
		go worker()
	}
	for idx := range items {
		tasks <- idx
	}
	close(tasks)
	wg.Wait()
	return results
}
