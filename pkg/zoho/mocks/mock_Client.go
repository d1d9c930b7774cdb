// Package mocks provides test doubles for the zoho client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	zoho "github.com/sells-group/missedcall/pkg/zoho"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, module, phones, opts
func (_m *MockClient) Search(ctx context.Context, module string, phones []string, opts ...zoho.SearchOption) ([]zoho.Record, error) {
	_va := make([]interface{}, len(opts))
	for _i := range opts {
		_va[_i] = opts[_i]
	}
	var _ca []interface{}
	_ca = append(_ca, ctx, module, phones)
	_ca = append(_ca, _va...)
	ret := _m.Called(_ca...)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 []zoho.Record
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, []string, ...zoho.SearchOption) ([]zoho.Record, error)); ok {
		return rf(ctx, module, phones, opts...)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]zoho.Record)
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
