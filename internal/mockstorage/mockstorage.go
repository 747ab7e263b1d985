// Package mockstorage provides a testify-based mock implementation
// of the record store interfaces used by the service and router packages.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/userauth/internal/user"
)

// StorageMock is a testify mock that implements storage.Storage.
//
// Use it in tests to simulate record store failures that a real
// backend cannot be made to produce on demand.
type StorageMock struct {
	mock.Mock

	// OnCountUsers is an optional function field that can be assigned
	// to define custom mock behavior for CountUsers in tests.
	//
	// If set, CountUsers will delegate to this function instead of
	// using testify's generic mock handler.
	OnCountUsers func(ctx context.Context) (int64, error)
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// LoadAll mocks loading the whole collection.
func (m *StorageMock) LoadAll(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]user.User)
	return users, args.Error(1)
}

// FindByUsername mocks a lookup by username.
func (m *StorageMock) FindByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	args := m.Called(ctx, username)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// Append mocks appending a record.
func (m *StorageMock) Append(ctx context.Context, usr *user.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

// CountUsers returns the number of users, delegating to OnCountUsers when set.
func (m *StorageMock) CountUsers(ctx context.Context) (int64, error) {
	if m.OnCountUsers != nil {
		return m.OnCountUsers(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Close mocks closing the store.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
