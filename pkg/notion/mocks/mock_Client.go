// Package mocks provides test doubles for the Notion lead client.
package mocks

import (
	"context"

	notionapi "github.com/jomei/notionapi"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// FindLeadPage provides a mock function with given fields: ctx, dbID, siren
func (_m *MockClient) FindLeadPage(ctx context.Context, dbID string, siren string) (*notionapi.Page, error) {
	ret := _m.Called(ctx, dbID, siren)

	if len(ret) == 0 {
		panic("no return value specified for FindLeadPage")
	}

	var r0 *notionapi.Page
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*notionapi.Page, error)); ok {
		return rf(ctx, dbID, siren)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*notionapi.Page)
	}
	return r0, ret.Error(1)
}

// CreateLead provides a mock function with given fields: ctx, dbID, props
func (_m *MockClient) CreateLead(ctx context.Context, dbID string, props notionapi.Properties) (*notionapi.Page, error) {
	ret := _m.Called(ctx, dbID, props)

	if len(ret) == 0 {
		panic("no return value specified for CreateLead")
	}

	var r0 *notionapi.Page
	if rf, ok := ret.Get(0).(func(context.Context, string, notionapi.Properties) (*notionapi.Page, error)); ok {
		return rf(ctx, dbID, props)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*notionapi.Page)
	}
	return r0, ret.Error(1)
}

// UpdateLead provides a mock function with given fields: ctx, pageID, props
func (_m *MockClient) UpdateLead(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	ret := _m.Called(ctx, pageID, props)

	if len(ret) == 0 {
		panic("no return value specified for UpdateLead")
	}

	var r0 *notionapi.Page
	if rf, ok := ret.Get(0).(func(context.Context, string, notionapi.Properties) (*notionapi.Page, error)); ok {
		return rf(ctx, pageID, props)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*notionapi.Page)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
