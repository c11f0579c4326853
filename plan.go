package muse

import "github.com/vk/muse/internal/source"

// Plan is a composable description of remote data an application needs.
// Build one with Value, Source, Map, FlatMap, Collect or Traverse and hand
// it to Execute or Run.
type Plan struct {
	n node
}

// node is the closed set of AST shapes the evaluator walks. There is no
// separate wrapper shape for a bare, not-yet-lifted subplan: every muse
// constructor already returns a concrete *Plan, so Go's static typing
// removes the need for one outright.
type node interface {
	isNode()
}

// doneNode is a fully evaluated leaf. Value rejects plans and sources, and
// the inject step lifts a FlatMap continuation's result into a Plan before
// evaluating it further; a Map function's return value is stored as it is.
type doneNode struct {
	value any
}

// mapNode applies f once every child is Done. With one child f receives
// its value directly; otherwise it receives the ordered slice of values.
type mapNode struct {
	f        func(any) any
	children []node
}

// flatMapNode is like mapNode, but f yields a further Plan, Source, or
// plain value to keep evaluating rather than a final value.
type flatMapNode struct {
	f        func(any) any
	children []node
}

// sourceNode is a request awaiting dispatch. It is not itself a finished
// AST node: the evaluator's inject step lifts it into a one-child mapNode
// the first time it sees one, resolving it from cache or the current
// level's fetch results.
type sourceNode struct {
	req source.DataSource
}

func (*doneNode) isNode()    {}
func (*mapNode) isNode()     {}
func (*flatMapNode) isNode() {}
func (*sourceNode) isNode()  {}

// Value builds a Plan that is already fully evaluated. It rejects values
// that are themselves plans or data sources, which would otherwise be
// silently double-wrapped.
func Value(v any) (*Plan, error) {
	switch v.(type) {
	case *Plan:
		return nil, &AlreadyASTError{Value: v}
	case source.DataSource:
		return nil, &AlreadyASTError{Value: v}
	}
	return &Plan{n: &doneNode{value: v}}, nil
}

// Source lifts a data-source request into a Plan. The request is not
// dispatched here; the evaluator discovers it as part of the plan's
// frontier and fetches it (deduplicated, batched, and cached) once the
// plan is executed.
func Source(req DataSource) *Plan {
	return &Plan{n: &sourceNode{req: req}}
}

// liftToPlan wraps a FlatMap continuation's result, which may already be a
// Plan or a bare DataSource, or may just be a plain value, into a Plan.
// Unlike Value it never rejects anything: by the time it is called the
// caller has already excluded the "user tried to double-wrap" case that
// Value guards against.
func liftToPlan(v any) *Plan {
	switch r := v.(type) {
	case *Plan:
		return r
	case source.DataSource:
		return Source(r)
	default:
		return &Plan{n: &doneNode{value: r}}
	}
}
