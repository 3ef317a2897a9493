// Package runner fans work out over a bounded number of goroutines and keeps
// one item's failure from stopping the others.
package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const DefaultLimit = 6

type Result[T any] struct {
	Index int
	Item  T
	Err   error
}

// Run calls fn for every item with at most limit calls in flight and returns
// one Result per item in input order. A panic in fn becomes that item's
// error. Items not yet started when ctx is cancelled get ctx.Err().
func Run[T any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) error) []Result[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	results := make([]Result[T], len(items))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		results[i] = Result[T]{Index: i, Item: item}
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Err = call(ctx, item, fn)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func call[T any](ctx context.Context, item T, fn func(context.Context, T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, item)
}

// Failed returns the results that carry an error.
func Failed[T any](results []Result[T]) []Result[T] {
	var out []Result[T]
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
