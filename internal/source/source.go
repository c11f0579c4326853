// Package source declares the capability interfaces muse's evaluator
// consumes from application-supplied data sources. The root muse package
// re-exports these as DataSource, BatchedSource and Env; they live here,
// below the evaluator, so that internal/fetch can depend on them without
// importing the root package.
package source

import (
	"context"

	"github.com/vk/muse/internal/muscache"
)

// DataSource is a single request for a piece of remote data. Identity must
// be a comparable value, stable for a given logical request: it is both the
// dedup key and the cache key within one resource kind. Fetch performs the
// actual I/O; failures propagate to the run that triggered them.
type DataSource interface {
	Identity() any
	Fetch(ctx context.Context, env Env) (any, error)
}

// BatchedSource is a DataSource whose resource kind can serve many requests
// in a single round trip. FetchMulti must return a response for every
// identity among s and others combined; the evaluator treats a missing key
// as a BatchIncomplete error.
type BatchedSource interface {
	DataSource
	FetchMulti(ctx context.Context, others []DataSource, env Env) (map[any]any, error)
}

// Env is passed to every Fetch/FetchMulti call. It always carries the run's
// cache (read-only from the data source's point of view: only the evaluator
// ever writes to it) plus whatever extra values the caller passed via Opts.
type Env struct {
	Cache *muscache.Cache
	Extra map[string]any
}
