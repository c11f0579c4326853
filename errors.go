package muse

import "github.com/vk/muse/internal/muserr"

// Error kinds a run can surface. They are defined in internal/muserr and
// re-exported here as aliases so both the evaluator and the fetcher can
// construct them without importing this package.
type (
	AlreadyASTError      = muserr.AlreadyASTError
	FetchFailedError     = muserr.FetchFailedError
	BatchIncompleteError = muserr.BatchIncompleteError
	DivergedError        = muserr.DivergedError
)
