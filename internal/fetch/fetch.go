// Package fetch implements muse's dispatch rule: given a deduplicated,
// same-kind group of data-source requests, decide whether to issue one
// fetch, one batched fetch_multi, or many concurrent fetches, and return
// a promise of the resulting identity -> response map.
package fetch

import (
	"context"
	"reflect"

	"github.com/vk/muse/internal/muserr"
	"github.com/vk/muse/internal/promise"
	"github.com/vk/muse/internal/source"
)

type entry struct {
	id   any
	resp any
}

// Group dispatches reqs, which must all share kind and already be
// deduplicated by identity (the evaluator guarantees both before calling
// in). It never calls Fetch twice for the same identity.
func Group(ctx context.Context, kind reflect.Type, reqs []source.DataSource, env source.Env) *promise.Promise[map[any]any] {
	switch len(reqs) {
	case 0:
		return promise.Resolved(map[any]any{})
	case 1:
		return dispatchSingle(ctx, kind, reqs[0], env)
	default:
		if batched, ok := reqs[0].(source.BatchedSource); ok {
			return dispatchBatch(ctx, kind, batched, reqs[1:], env)
		}
		return dispatchConcurrent(ctx, kind, reqs, env)
	}
}

func dispatchSingle(ctx context.Context, kind reflect.Type, req source.DataSource, env source.Env) *promise.Promise[map[any]any] {
	return promise.New(func() (map[any]any, error) {
		resp, err := req.Fetch(ctx, env)
		if err != nil {
			return nil, &muserr.FetchFailedError{Kind: kind, Identity: req.Identity(), Err: err}
		}
		return map[any]any{req.Identity(): resp}, nil
	})
}

func dispatchBatch(ctx context.Context, kind reflect.Type, first source.BatchedSource, rest []source.DataSource, env source.Env) *promise.Promise[map[any]any] {
	return promise.New(func() (map[any]any, error) {
		resp, err := first.FetchMulti(ctx, rest, env)
		if err != nil {
			return nil, &muserr.FetchFailedError{Kind: kind, Identity: first.Identity(), Err: err}
		}

		want := make([]any, 0, len(rest)+1)
		want = append(want, first.Identity())
		for _, r := range rest {
			want = append(want, r.Identity())
		}

		var missing []any
		for _, id := range want {
			if _, ok := resp[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return nil, &muserr.BatchIncompleteError{Kind: kind, Missing: missing}
		}
		return resp, nil
	})
}

func dispatchConcurrent(ctx context.Context, kind reflect.Type, reqs []source.DataSource, env source.Env) *promise.Promise[map[any]any] {
	fetches := make([]*promise.Promise[entry], len(reqs))
	for i, r := range reqs {
		r := r
		fetches[i] = promise.New(func() (entry, error) {
			resp, err := r.Fetch(ctx, env)
			if err != nil {
				return entry{}, &muserr.FetchFailedError{Kind: kind, Identity: r.Identity(), Err: err}
			}
			return entry{id: r.Identity(), resp: resp}, nil
		})
	}

	joined := promise.All(ctx, fetches)
	return promise.Map(joined, func(entries []entry) map[any]any {
		out := make(map[any]any, len(entries))
		for _, e := range entries {
			out[e.id] = e.resp
		}
		return out
	})
}

// Dedup removes requests with a repeated identity, keeping the first
// occurrence, so the evaluator never calls Fetch twice for the same
// (kind, id) in a single run.
func Dedup(reqs []source.DataSource) []source.DataSource {
	seen := make(map[any]struct{}, len(reqs))
	out := make([]source.DataSource, 0, len(reqs))
	for _, r := range reqs {
		id := r.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}
