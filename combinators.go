package muse

// Map applies f once every plan in plans is done. With a single plan f
// receives its value directly; with several it receives their values as a
// slice, in the same order as plans.
//
// When plans has exactly one element and that element is itself Done, Map
// or FlatMap, Map fuses f onto it instead of wrapping it in a new node:
// this keeps chains of transformations flat and is semantically
// equivalent to the unfused form (see the identity and composition laws in
// the package tests).
func Map(f func(any) any, plans ...*Plan) *Plan {
	if len(plans) == 1 {
		if fused := fuseMap(f, plans[0].n); fused != nil {
			return &Plan{n: fused}
		}
		return &Plan{n: &mapNode{f: f, children: []node{plans[0].n}}}
	}
	children := make([]node, len(plans))
	for i, p := range plans {
		children[i] = p.n
	}
	return &Plan{n: &mapNode{f: f, children: children}}
}

// FlatMap is like Map, except f returns a further Plan, Source or plain
// value to continue evaluating rather than a final value. Fusing FlatMap
// onto an existing Map or FlatMap node produces another FlatMap node, never
// a Map: this is the "safer" resolution of the composed-AST ambiguity
// documented in DESIGN.md. Fusing onto a Done node applies f at once and
// lifts its result into a Plan.
func FlatMap(f func(any) any, plans ...*Plan) *Plan {
	if len(plans) == 1 {
		if fused := fuseFlatMap(f, plans[0].n); fused != nil {
			return &Plan{n: fused}
		}
		return &Plan{n: &flatMapNode{f: f, children: []node{plans[0].n}}}
	}
	children := make([]node, len(plans))
	for i, p := range plans {
		children[i] = p.n
	}
	return &Plan{n: &flatMapNode{f: f, children: children}}
}

// Collect runs every plan and resolves to their values, in input order,
// regardless of which fetch completes first. Collect(nil) requires zero
// fetches. With a single plan, Map's single-child convention applies: the
// result is that plan's bare value, not a one-element slice.
func Collect(plans []*Plan) *Plan {
	if len(plans) == 0 {
		p, _ := Value([]any{})
		return p
	}
	return Map(identity, plans...)
}

// Traverse applies f to every item and collects the results, giving the
// evaluator the same batching opportunity as building the plans by hand
// and calling Collect. Applying f eagerly to build one plan per item
// before collecting them is equivalent to folding f and Collect together,
// since f here is a pure Go function rather than itself a fetch.
func Traverse[T any](items []T, f func(T) *Plan) *Plan {
	plans := make([]*Plan, len(items))
	for i, it := range items {
		plans[i] = f(it)
	}
	return Collect(plans)
}

func identity(v any) any { return v }

// fuseMap tries to compose f2 onto an existing node instead of wrapping
// it in a new mapNode. It returns nil when n is not one of the fusable
// shapes (a bare, not-yet-lifted Source is never fused).
func fuseMap(f2 func(any) any, n node) node {
	switch existing := n.(type) {
	case *doneNode:
		return liftToPlan(f2(existing.value)).n
	case *mapNode:
		inner := existing.f
		return &mapNode{
			f:        func(v any) any { return f2(inner(v)) },
			children: existing.children,
		}
	case *flatMapNode:
		inner := existing.f
		return &flatMapNode{
			f: func(v any) any {
				return Map(f2, liftToPlan(inner(v)))
			},
			children: existing.children,
		}
	default:
		return nil
	}
}

// fuseFlatMap is fuseMap's analogue for FlatMap: composing onto a mapNode
// or flatMapNode yields another flatMapNode, while a doneNode has f2
// applied eagerly.
func fuseFlatMap(f2 func(any) any, n node) node {
	switch existing := n.(type) {
	case *doneNode:
		return liftToPlan(f2(existing.value)).n
	case *mapNode:
		inner := existing.f
		return &flatMapNode{
			f:        func(v any) any { return f2(inner(v)) },
			children: existing.children,
		}
	case *flatMapNode:
		inner := existing.f
		return &flatMapNode{
			f: func(v any) any {
				return FlatMap(f2, liftToPlan(inner(v)))
			},
			children: existing.children,
		}
	default:
		return nil
	}
}
