// Package fanout dispatches N concurrent operations and collects every
// outcome — success or failure — in input order, so partial success can
// be preserved instead of failing a whole batch for one bad member.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one fan-out task, tagged with its input
// index so the assembled output order matches the input order
// regardless of completion order.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Collect runs fn for every index in [0, n) with at most parallel
// tasks in flight (parallel <= 0 means unbounded) and returns one
// Result per input position. Individual failures never cancel
// siblings; the caller decides what an all-failed batch means.
func Collect[T any](ctx context.Context, n, parallel int, fn func(ctx context.Context, i int) (T, error)) []Result[T] {
	results := make([]Result[T], n)

	var g errgroup.Group
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i := range n {
		g.Go(func() error {
			v, err := fn(ctx, i)
			results[i] = Result[T]{Index: i, Value: v, Err: err}
			return nil
		})
	}
	// Task errors are captured per-result; Wait only synchronizes.
	_ = g.Wait()

	return results
}

// Successes returns the values of all successful results, preserving
// input order.
func Successes[T any](results []Result[T]) []T {
	out := make([]T, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}

// FirstError returns the error of the first failed result, or nil when
// every task succeeded.
func FirstError[T any](results []Result[T]) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
