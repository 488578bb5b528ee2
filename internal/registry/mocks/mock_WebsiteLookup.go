package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// MockWebsiteLookup is a mock type for the WebsiteLookup interface.
type MockWebsiteLookup struct {
	mock.Mock
}

// EnterpriseWebsite provides a mock function with given fields: ctx, siren
func (_m *MockWebsiteLookup) EnterpriseWebsite(ctx context.Context, siren string) (string, error) {
	ret := _m.Called(ctx, siren)

	if len(ret) == 0 {
		panic("no return value specified for EnterpriseWebsite")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) (string, error)); ok {
		return rf(ctx, siren)
	}
	return ret.String(0), ret.Error(1)
}

// NewMockWebsiteLookup creates a new instance of MockWebsiteLookup.
func NewMockWebsiteLookup(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWebsiteLookup {
	m := &MockWebsiteLookup{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
