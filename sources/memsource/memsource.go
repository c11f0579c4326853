// Package memsource is a small in-memory DataSource used by muse's own
// tests. It answers with a
// caller-supplied response body and records every Fetch/FetchMulti call it
// serves, so tests can assert on the dedup and batching laws without a
// real network.
package memsource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vk/muse"
)

// CallLog records every Fetch and FetchMulti call a Request/BatchedRequest
// serves, keyed by identity, so tests can assert exactly how many
// round trips a plan required.
type CallLog struct {
	mu      sync.Mutex
	fetches []string
	multis  [][]string
}

func NewCallLog() *CallLog { return &CallLog{} }

func (l *CallLog) recordFetch(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetches = append(l.fetches, id)
}

func (l *CallLog) recordMulti(ids []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.multis = append(l.multis, ids)
}

// FetchCount is the number of individual (non-batched) Fetch calls served.
func (l *CallLog) FetchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fetches)
}

// MultiCount is the number of FetchMulti calls served.
func (l *CallLog) MultiCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.multis)
}

// Request is a stand-in for a small HTTP-shaped fetch: a URL, some query
// parameters, and the body the fake endpoint answers with. Its identity is
// derived structurally from URL and Params, so two Requests built
// separately but describing the same call dedupe correctly.
type Request struct {
	URL      string
	Params   map[string]string
	Response map[string]any
	Log      *CallLog
}

var _ muse.DataSource = Request{}

// Identity returns a canonical string built from URL and the sorted
// parameter set, so map ordering never affects equality.
func (r Request) Identity() any {
	return identityKey(r.URL, r.Params)
}

func identityKey(url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, params[k])
	}
	return b.String()
}

// Fetch answers with {"body": Response}, cloned so callers can't mutate a
// shared Response map out from under other in-flight fetches.
func (r Request) Fetch(_ context.Context, _ muse.Env) (any, error) {
	if r.Log != nil {
		r.Log.recordFetch(r.Identity().(string))
	}
	return map[string]any{"body": cloneBody(r.Response)}, nil
}

func cloneBody(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// BatchedRequest is a Request whose kind also implements BatchedSource: a
// group of two or more BatchedRequests in one plan level is served by a
// single FetchMulti call instead of one Fetch per request.
type BatchedRequest struct {
	Request
}

var _ muse.BatchedSource = BatchedRequest{}

// FetchMulti answers for r and every peer in others, marking each body
// with "batched": true so tests can tell a batched response from a plain
// one. Every peer must itself be a BatchedRequest; the fake has no
// sensible answer for a mixed group, and the real fetcher never builds one
// (dispatch only calls FetchMulti when the whole group shares one kind).
func (r BatchedRequest) FetchMulti(_ context.Context, others []muse.DataSource, _ muse.Env) (map[any]any, error) {
	ids := make([]string, 0, len(others)+1)
	out := make(map[any]any, len(others)+1)

	add := func(req BatchedRequest) {
		body := cloneBody(req.Response)
		body["batched"] = true
		out[req.Identity()] = map[string]any{"body": body}
		ids = append(ids, req.Identity().(string))
	}

	add(r)
	for _, o := range others {
		peer, ok := o.(BatchedRequest)
		if !ok {
			return nil, fmt.Errorf("memsource: FetchMulti received a non-BatchedRequest peer %T", o)
		}
		add(peer)
	}

	if r.Log != nil {
		r.Log.recordMulti(ids)
	}
	return out, nil
}
