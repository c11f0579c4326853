package muse

import (
	"context"

	"github.com/vk/muse/internal/muscache"
	"github.com/vk/muse/internal/source"
)

// DataSource, BatchedSource and Env are the capabilities application code
// implements to supply data to a Plan. They are defined in
// internal/source, below the evaluator, and re-exported here as aliases so
// the fetcher and evaluator can construct/consume them without importing
// this package.
type (
	DataSource    = source.DataSource
	BatchedSource = source.BatchedSource
	Env           = source.Env
)

// Cache is the two-level (resource kind -> identity -> response) mapping
// the evaluator consults and writes between levels. Its lifetime is a
// single Execute call.
type Cache = muscache.Cache

// NewCache returns an empty cache, suitable for Opts.Cache when a caller
// wants to seed it before a run (see Cache.Seed).
func NewCache() *Cache { return muscache.New() }

// defaultMaxLevels bounds the level-by-level loop as a defensive guard
// against a plan whose FlatMap chain never bottoms out. It is generous
// enough that no realistic plan should ever approach it.
const defaultMaxLevels = 10_000

// Opts configures one Execute/Run call.
type Opts struct {
	// Cache seeds the run with previously observed responses. Defaults to
	// a fresh, empty cache.
	Cache *Cache
	// Extra is passed through to every Fetch/FetchMulti call via Env.Extra.
	Extra map[string]any
	// MaxLevels bounds how many fetch/merge rounds Execute will run before
	// giving up with a DivergedError. Zero means defaultMaxLevels.
	MaxLevels int
}

func (o Opts) resolve() (*Cache, Env, int) {
	cache := o.Cache
	if cache == nil {
		cache = NewCache()
	}
	env := Env{Cache: cache, Extra: o.Extra}
	maxLevels := o.MaxLevels
	if maxLevels == 0 {
		maxLevels = defaultMaxLevels
	}
	return cache, env, maxLevels
}

// Execute evaluates plan to completion, running independent fetches
// concurrently, batching and deduplicating same-kind requests, and
// consulting/populating a per-run cache. It returns the plan's final value
// together with the cache accumulated along the way.
func Execute(ctx context.Context, plan *Plan, opts Opts) (any, *Cache, error) {
	cache, env, maxLevels := opts.resolve()
	value, err := runLevels(ctx, plan.n, cache, env, maxLevels)
	if err != nil {
		return nil, cache, err
	}
	return value, cache, nil
}

// Run evaluates plan, discards its cache, and returns its value or error.
// It is the common case: callers that also want the accumulated cache
// should use Execute directly.
func Run(ctx context.Context, plan *Plan, opts Opts) (any, error) {
	value, _, err := Execute(ctx, plan, opts)
	return value, err
}
