// Package mocks provides test doubles for the telephony client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	telephony "github.com/sells-group/missedcall/pkg/telephony"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// FetchPage provides a mock function with given fields: ctx, q
func (_m *MockClient) FetchPage(ctx context.Context, q telephony.PageQuery) (*telephony.Page, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for FetchPage")
	}

	var r0 *telephony.Page
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, telephony.PageQuery) (*telephony.Page, error)); ok {
		return rf(ctx, q)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*telephony.Page)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
