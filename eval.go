package muse

import (
	"context"
	"reflect"

	"github.com/vk/muse/internal/ctxlog"
	"github.com/vk/muse/internal/fetch"
	"github.com/vk/muse/internal/ident"
	"github.com/vk/muse/internal/muscache"
	"github.com/vk/muse/internal/muserr"
	"github.com/vk/muse/internal/promise"
	"github.com/vk/muse/internal/source"
)

// injectState accumulates the frontier of not-yet-resolved source leaves
// discovered during a single inject pass over the plan tree.
type injectState struct {
	cache    *muscache.Cache
	frontier []*sourceNode
}

// inject rewrites n one pass deeper towards Done, resolving any Source leaf
// whose (kind, identity) is already cached and recording the rest into
// st.frontier. This is the inject step of one evaluator level.
func inject(st *injectState, n node) node {
	switch t := n.(type) {
	case *doneNode:
		return t

	case *sourceNode:
		kind := ident.Kind(t.req)
		if resp, ok := st.cache.Lookup(kind, t.req.Identity()); ok {
			return &doneNode{value: resp}
		}
		st.frontier = append(st.frontier, t)
		return &mapNode{f: identity, children: []node{t}}

	case *mapNode:
		children, vals, allDone := injectChildren(st, t.children)
		if !allDone {
			return &mapNode{f: t.f, children: children}
		}
		return &doneNode{value: t.f(collapseArgs(vals))}

	case *flatMapNode:
		children, vals, allDone := injectChildren(st, t.children)
		if !allDone {
			return &flatMapNode{f: t.f, children: children}
		}
		next := liftToPlan(t.f(collapseArgs(vals)))
		return inject(st, next.n)

	default:
		panic("muse: unknown plan node type")
	}
}

// injectChildren injects every child, reporting whether all of them
// resolved to Done and, if so, their values in child order.
func injectChildren(st *injectState, children []node) (rewritten []node, vals []any, allDone bool) {
	rewritten = make([]node, len(children))
	vals = make([]any, len(children))
	allDone = true
	for i, c := range children {
		nc := inject(st, c)
		rewritten[i] = nc
		if dn, ok := nc.(*doneNode); ok {
			vals[i] = dn.value
		} else {
			allDone = false
		}
	}
	return rewritten, vals, allDone
}

// collapseArgs implements the single-child call convention: a one-element
// child list passes its bare value to f, anything else passes the whole
// ordered slice.
func collapseArgs(vals []any) any {
	if len(vals) == 1 {
		return vals[0]
	}
	return vals
}

// kindResult is one resolved fetch group, tagged with its resource kind so
// the caller knows where to merge it back into the cache.
type kindResult struct {
	kind reflect.Type
	resp map[any]any
}

// runLevels drives the level-by-level evaluation loop: inject, collect the
// frontier, and if it is non-empty, group by kind, dedupe, dispatch
// concurrently, merge into cache, and recurse. It terminates when an inject
// pass leaves an empty frontier and a Done root.
func runLevels(ctx context.Context, root node, cache *muscache.Cache, env source.Env, maxLevels int) (any, error) {
	logger := ctxlog.FromContext(ctx)

	for level := 1; ; level++ {
		if maxLevels > 0 && level > maxLevels {
			return nil, &muserr.DivergedError{Levels: level - 1}
		}

		st := &injectState{cache: cache}
		injected := inject(st, root)

		if len(st.frontier) == 0 {
			if dn, ok := injected.(*doneNode); ok {
				return dn.value, nil
			}
			root = injected
			continue
		}

		groups := groupByKind(st.frontier)
		logger.Debug("muse: dispatching level", "level", level, "kinds", len(groups), "requests", len(st.frontier))

		results, err := dispatchGroups(ctx, groups, env)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			cache.Merge(r.kind, r.resp)
		}

		root = injected
	}
}

// groupByKind partitions the frontier's requests by resource kind, the
// nominal Go type of each request value.
func groupByKind(frontier []*sourceNode) map[reflect.Type][]source.DataSource {
	groups := make(map[reflect.Type][]source.DataSource)
	for _, sn := range frontier {
		kind := ident.Kind(sn.req)
		groups[kind] = append(groups[kind], sn.req)
	}
	return groups
}

// dispatchGroups fires every kind's fetch group concurrently and joins them
// at the single suspension point for this level.
func dispatchGroups(ctx context.Context, groups map[reflect.Type][]source.DataSource, env source.Env) ([]kindResult, error) {
	promises := make([]*promise.Promise[kindResult], 0, len(groups))
	for kind, reqs := range groups {
		kind := kind
		deduped := fetch.Dedup(reqs)
		p := fetch.Group(ctx, kind, deduped, env)
		promises = append(promises, promise.Map(p, func(resp map[any]any) kindResult {
			return kindResult{kind: kind, resp: resp}
		}))
	}
	joined := promise.All(ctx, promises)
	return promise.Extract(joined)
}
