// Package mocks provides test doubles for the pagespeed client.
package mocks

import (
	"context"

	pagespeed "github.com/sells-group/lead-builder/pkg/pagespeed"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Run provides a mock function with given fields: ctx, targetURL, strategy
func (_m *MockClient) Run(ctx context.Context, targetURL string, strategy string) (*pagespeed.Result, error) {
	ret := _m.Called(ctx, targetURL, strategy)

	if len(ret) == 0 {
		panic("no return value specified for Run")
	}

	var r0 *pagespeed.Result
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*pagespeed.Result, error)); ok {
		return rf(ctx, targetURL, strategy)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *pagespeed.Result); ok {
		r0 = rf(ctx, targetURL, strategy)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*pagespeed.Result)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, targetURL, strategy)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
