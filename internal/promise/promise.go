// Package promise implements the minimal futures capability muse's
// evaluator consumes internally: make, resolved, map, flat_map, all and
// extract. It is not part of the public API; application code never
// constructs a Promise directly, it only implements DataSource.Fetch, which
// the fetcher wraps in one.
package promise

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Promise is a single-assignment future. Its value is available once the
// goroutine that produces it returns; Extract blocks until then.
type Promise[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// New starts thunk on its own goroutine and returns a promise for its result.
func New[T any](thunk func() (T, error)) *Promise[T] {
	p := &Promise[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.val, p.err = thunk()
	}()
	return p
}

// Resolved returns an already-completed promise, for values that need no
// asynchronous work (a cache hit, for instance).
func Resolved[T any](v T) *Promise[T] {
	p := &Promise[T]{done: make(chan struct{})}
	p.val = v
	close(p.done)
	return p
}

// Extract blocks until p resolves and returns its value or error.
func Extract[T any](p *Promise[T]) (T, error) {
	<-p.done
	return p.val, p.err
}

// Map applies f to p's eventual value, once it arrives.
func Map[T, U any](p *Promise[T], f func(T) U) *Promise[U] {
	return New(func() (U, error) {
		v, err := Extract(p)
		if err != nil {
			var zero U
			return zero, err
		}
		return f(v), nil
	})
}

// FlatMap chains a promise-producing continuation onto p.
func FlatMap[T, U any](p *Promise[T], f func(T) *Promise[U]) *Promise[U] {
	return New(func() (U, error) {
		v, err := Extract(p)
		if err != nil {
			var zero U
			return zero, err
		}
		return Extract(f(v))
	})
}

// All joins a slice of promises, preserving order, failing fast on the
// first error. It is the sole suspension point the evaluator uses per
// level: every fetch discovered in one pass is joined here before the next
// inject pass runs.
func All[T any](ctx context.Context, ps []*Promise[T]) *Promise[[]T] {
	return New(func() ([]T, error) {
		results := make([]T, len(ps))
		g, gctx := errgroup.WithContext(ctx)
		for i, p := range ps {
			i, p := i, p
			g.Go(func() error {
				select {
				case <-p.done:
				case <-gctx.Done():
					return gctx.Err()
				}
				if p.err != nil {
					return p.err
				}
				results[i] = p.val
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	})
}
