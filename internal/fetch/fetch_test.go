package fetch_test

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vk/muse/internal/fetch"
	"github.com/vk/muse/internal/muserr"
	"github.com/vk/muse/internal/promise"
	"github.com/vk/muse/internal/source"
)

// fakeReq is a minimal DataSource whose Fetch counts how many times it ran.
type fakeReq struct {
	id      string
	calls   *atomic.Int32
	failing bool
}

func (r fakeReq) Identity() any { return r.id }

func (r fakeReq) Fetch(context.Context, source.Env) (any, error) {
	r.calls.Add(1)
	if r.failing {
		return nil, assertError{}
	}
	return "resp-" + r.id, nil
}

type assertError struct{}

func (assertError) Error() string { return "boom" }

// fakeBatched additionally implements FetchMulti.
type fakeBatched struct {
	fakeReq
	multiCalls *atomic.Int32
	omit       string // an identity to deliberately leave out of the response
}

func (r fakeBatched) FetchMulti(_ context.Context, others []source.DataSource, _ source.Env) (map[any]any, error) {
	r.multiCalls.Add(1)
	out := map[any]any{}
	if r.id != r.omit {
		out[r.id] = "batched-" + r.id
	}
	for _, o := range others {
		peer := o.(fakeBatched)
		if peer.id != r.omit {
			out[peer.id] = "batched-" + peer.id
		}
	}
	return out, nil
}

var kind = reflect.TypeOf(fakeReq{})

func TestGroup_Empty(t *testing.T) {
	p := fetch.Group(context.Background(), kind, nil, source.Env{})
	got, err := promise.Extract(p)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGroup_Single(t *testing.T) {
	var calls atomic.Int32
	req := fakeReq{id: "a", calls: &calls}

	p := fetch.Group(context.Background(), kind, []source.DataSource{req}, source.Env{})
	got, err := promise.Extract(p)
	require.NoError(t, err)
	assert.Equal(t, map[any]any{"a": "resp-a"}, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGroup_ConcurrentUnbatched(t *testing.T) {
	var calls atomic.Int32
	reqs := []source.DataSource{
		fakeReq{id: "a", calls: &calls},
		fakeReq{id: "b", calls: &calls},
		fakeReq{id: "c", calls: &calls},
	}

	p := fetch.Group(context.Background(), kind, reqs, source.Env{})
	got, err := promise.Extract(p)
	require.NoError(t, err)
	assert.Equal(t, map[any]any{"a": "resp-a", "b": "resp-b", "c": "resp-c"}, got)
	assert.Equal(t, int32(3), calls.Load(), "law 4/5: exactly one fetch per distinct identity")
}

func TestGroup_SingleFetchFailurePropagates(t *testing.T) {
	var calls atomic.Int32
	req := fakeReq{id: "a", calls: &calls, failing: true}

	p := fetch.Group(context.Background(), kind, []source.DataSource{req}, source.Env{})
	_, err := promise.Extract(p)
	require.Error(t, err)
	var ff *muserr.FetchFailedError
	require.ErrorAs(t, err, &ff)
}

func TestGroup_ConcurrentFailureShortCircuits(t *testing.T) {
	var calls atomic.Int32
	reqs := []source.DataSource{
		fakeReq{id: "a", calls: &calls},
		fakeReq{id: "b", calls: &calls, failing: true},
	}

	p := fetch.Group(context.Background(), kind, reqs, source.Env{})
	_, err := promise.Extract(p)
	require.Error(t, err)
}

// Law 5: a batched kind's group is served by exactly one FetchMulti call,
// never by per-item Fetch calls.
func TestGroup_Batched(t *testing.T) {
	var multi atomic.Int32
	mk := func(id string) fakeBatched {
		return fakeBatched{fakeReq: fakeReq{id: id}, multiCalls: &multi}
	}
	reqs := []source.DataSource{mk("a"), mk("b"), mk("c")}
	batchedKind := reflect.TypeOf(fakeBatched{})

	p := fetch.Group(context.Background(), batchedKind, reqs, source.Env{})
	got, err := promise.Extract(p)
	require.NoError(t, err)
	assert.Equal(t, map[any]any{"a": "batched-a", "b": "batched-b", "c": "batched-c"}, got)
	assert.Equal(t, int32(1), multi.Load())
}

func TestGroup_BatchIncomplete(t *testing.T) {
	var multi atomic.Int32
	mk := func(id string) fakeBatched {
		return fakeBatched{fakeReq: fakeReq{id: id}, multiCalls: &multi, omit: "b"}
	}
	reqs := []source.DataSource{mk("a"), mk("b")}
	batchedKind := reflect.TypeOf(fakeBatched{})

	p := fetch.Group(context.Background(), batchedKind, reqs, source.Env{})
	_, err := promise.Extract(p)
	require.Error(t, err)
	var bi *muserr.BatchIncompleteError
	require.ErrorAs(t, err, &bi)
	assert.Equal(t, []any{"b"}, bi.Missing)
}

// TestGroup_Single_MockExpectsExactlyOneFetch pins law 4 (one fetch per
// identity) with a gomock expectation instead of a hand-rolled counter: the
// controller itself fails the test if Fetch runs more or fewer than once.
func TestGroup_Single_MockExpectsExactlyOneFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockDataSource(ctrl)
	m.EXPECT().Identity().Return("a").AnyTimes()
	m.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return("resp-a", nil).Times(1)

	mockKind := reflect.TypeOf(m)
	p := fetch.Group(context.Background(), mockKind, []source.DataSource{m}, source.Env{})
	got, err := promise.Extract(p)
	require.NoError(t, err)
	assert.Equal(t, map[any]any{"a": "resp-a"}, got)
}

func TestDedup_KeepsFirstOccurrence(t *testing.T) {
	var calls atomic.Int32
	a1 := fakeReq{id: "a", calls: &calls}
	a2 := fakeReq{id: "a", calls: &calls}
	b := fakeReq{id: "b", calls: &calls}

	deduped := fetch.Dedup([]source.DataSource{a1, a2, b})
	require.Len(t, deduped, 2)
	assert.Equal(t, "a", deduped[0].Identity())
	assert.Equal(t, "b", deduped[1].Identity())
}

