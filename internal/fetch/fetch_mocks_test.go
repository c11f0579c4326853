package fetch_test

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/vk/muse/internal/source"
)

// MockDataSource stands in for what `mockgen` would generate for
// source.DataSource. Hand-written because this module never invokes
// mockgen, but shaped exactly the way generated code is: a struct wrapping
// a *gomock.Controller, plus a recorder for EXPECT() call setup.
type MockDataSource struct {
	ctrl     *gomock.Controller
	recorder *MockDataSourceRecorder
}

type MockDataSourceRecorder struct {
	mock *MockDataSource
}

func NewMockDataSource(ctrl *gomock.Controller) *MockDataSource {
	m := &MockDataSource{ctrl: ctrl}
	m.recorder = &MockDataSourceRecorder{mock: m}
	return m
}

func (m *MockDataSource) EXPECT() *MockDataSourceRecorder { return m.recorder }

func (m *MockDataSource) Identity() any {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Identity")
	return ret[0]
}

func (mr *MockDataSourceRecorder) Identity() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Identity", reflect.TypeOf((*MockDataSource)(nil).Identity))
}

func (m *MockDataSource) Fetch(ctx context.Context, env source.Env) (any, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Fetch", ctx, env)
	err, _ := ret[1].(error)
	return ret[0], err
}

func (mr *MockDataSourceRecorder) Fetch(ctx, env any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Fetch", reflect.TypeOf((*MockDataSource)(nil).Fetch), ctx, env)
}
