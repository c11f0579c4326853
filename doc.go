// Package muse is a combinator library for declarative remote-data access.
//
// Application code describes what data it needs as a composable Plan; the
// evaluator decides how to fetch it: running independent requests
// concurrently, batching same-kind requests into one call, deduplicating
// identical requests, and caching results for the life of a single run.
//
// Build plans with Value, Map, FlatMap, Collect and Traverse; run them with
// Execute or Run. Data sources are supplied by application code via the
// DataSource (and optional BatchedSource) interfaces.
package muse
