// Package worker provides bounded-concurrency helpers for fan-out stages.
package worker

import (
	"context"
	"sync"
)

// Map runs fn over every item with at most workers calls in flight and
// returns per-item results in input order. A failed item records its error at
// the matching index; the rest of the batch still runs. Context cancellation
// stops dispatching new items; in-flight calls see the canceled context.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, []error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))
	if len(items) == 0 {
		return results, errs
	}

	type task struct {
		index int
		item  T
	}
	tasks := make(chan task)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				results[t.index], errs[t.index] = fn(ctx, t.item)
			}
		}()
	}

	for i, item := range items {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}
		tasks <- task{index: i, item: item}
	}
	close(tasks)
	wg.Wait()

	return results, errs
}

// ForEach is Map without result values.
func ForEach[T any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) error) []error {
	_, errs := Map(ctx, workers, items, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return errs
}
