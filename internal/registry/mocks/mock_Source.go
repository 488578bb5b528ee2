// Package mocks provides test doubles for the registry strategies.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/esn-finder/internal/model"
)

// MockSource is a mock type for the Source interface.
type MockSource struct {
	mock.Mock
}

// Name provides a mock function with given fields:
func (_m *MockSource) Name() string {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Name")
	}

	if rf, ok := ret.Get(0).(func() string); ok {
		return rf()
	}
	return ret.String(0)
}

// Fetch provides a mock function with given fields: ctx, nafCode, pageSize, maxPages
func (_m *MockSource) Fetch(ctx context.Context, nafCode string, pageSize int, maxPages int) ([]model.RawEstablishment, error) {
	ret := _m.Called(ctx, nafCode, pageSize, maxPages)

	if len(ret) == 0 {
		panic("no return value specified for Fetch")
	}

	var r0 []model.RawEstablishment
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int, int) ([]model.RawEstablishment, error)); ok {
		return rf(ctx, nafCode, pageSize, maxPages)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.RawEstablishment)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockSource creates a new instance of MockSource.
func NewMockSource(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSource {
	m := &MockSource{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
