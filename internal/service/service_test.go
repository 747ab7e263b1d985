package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/userauth/internal/credentials"
	"github.com/patric-chuzhbe/userauth/internal/db/memorystorage"
	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/mockstorage"
	"github.com/patric-chuzhbe/userauth/internal/models"
	"github.com/patric-chuzhbe/userauth/internal/passwords"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

func newTestService(t *testing.T) (*Service, *memorystorage.MemoryStorage) {
	t.Helper()
	db, err := memorystorage.New()
	require.NoError(t, err)
	return New(db, passwords.Bcrypt{Cost: bcrypt.MinCost}), db
}

func aliceRegisterRequest() *models.RegisterRequest {
	return &models.RegisterRequest{
		Username:        "alice",
		FirstName:       "Alice",
		ImageURL:        "http://x/a.png",
		Password:        "abc123",
		ConfirmPassword: "abc123",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	err := svc.Register(ctx, aliceRegisterRequest())
	require.NoError(t, err)

	stored, found, err := db.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEqual(t, "abc123", stored.PasswordHash, "the password should be stored hashed")

	view, err := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, &user.View{Username: "alice", FirstName: "Alice", ImageURL: "http://x/a.png"}, view)
}

func TestRegisterDuplicate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, aliceRegisterRequest()))

	err := svc.Register(ctx, aliceRegisterRequest())
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	count, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRegisterValidationAppendsNothing(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	requests := []*models.RegisterRequest{
		{FirstName: "Alice", ImageURL: "i", Password: "abc123", ConfirmPassword: "abc123"},
		{Username: "alice", FirstName: "Alice", ImageURL: "i", Password: "ab1", ConfirmPassword: "ab1"},
		{Username: "alice", FirstName: "Alice", ImageURL: "i", Password: "123456", ConfirmPassword: "123456"},
		{Username: "alice", FirstName: "Alice", ImageURL: "i", Password: "abc123", ConfirmPassword: "abc456"},
	}
	for _, req := range requests {
		err := svc.Register(ctx, req)
		_, ok := credentials.IsValidationError(err)
		assert.True(t, ok, "expected a ValidationError, got %v", err)
	}

	count, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRegisterAndLoginWithLongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	password := "a1" + strings.Repeat("x", 71)
	req := aliceRegisterRequest()
	req.Password = password
	req.ConfirmPassword = password

	require.NoError(t, svc.Register(ctx, req))

	_, err := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: password})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: password[:72]})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, aliceRegisterRequest()))

	_, wrongPasswordErr := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "wrong1"})
	_, unknownUserErr := svc.Login(ctx, &models.LoginRequest{Username: "nobody", Password: "abc123"})

	assert.ErrorIs(t, wrongPasswordErr, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUserErr, ErrInvalidCredentials)
	assert.Equal(t, wrongPasswordErr.Error(), unknownUserErr.Error())
}

func TestLoginMissingFields(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), &models.LoginRequest{Username: "alice"})
	validationErr, ok := credentials.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, credentials.ReasonMissingFields, validationErr.Reason)
}

func TestConcurrentRegistrationsOfTheSameUsername(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Register(ctx, aliceRegisterRequest())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	}
	assert.Equal(t, 1, succeeded)

	count, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStorageErrors(t *testing.T) {
	errStorage := errors.New("disk is gone")
	ctx := context.Background()

	t.Run("find fails on register", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("FindByUsername", mock.Anything, "alice").Return(nil, false, errStorage)

		err := New(db, passwords.Bcrypt{Cost: bcrypt.MinCost}).Register(ctx, aliceRegisterRequest())
		assert.ErrorIs(t, err, errStorage)
		db.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("append fails on register", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("FindByUsername", mock.Anything, "alice").Return(nil, false, nil)
		db.On("Append", mock.Anything, mock.AnythingOfType("*user.User")).Return(errStorage)

		err := New(db, passwords.Bcrypt{Cost: bcrypt.MinCost}).Register(ctx, aliceRegisterRequest())
		assert.ErrorIs(t, err, errStorage)
		db.AssertExpectations(t)
	})

	t.Run("store reports a duplicate on append", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("FindByUsername", mock.Anything, "alice").Return(nil, false, nil)
		db.On("Append", mock.Anything, mock.Anything).Return(fmt.Errorf("insert: %w", storage.ErrUserExists))

		err := New(db, passwords.Bcrypt{Cost: bcrypt.MinCost}).Register(ctx, aliceRegisterRequest())
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("find fails on login", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("FindByUsername", mock.Anything, "alice").Return(nil, false, errStorage)

		_, err := New(db, passwords.Bcrypt{Cost: bcrypt.MinCost}).Login(ctx, &models.LoginRequest{Username: "alice", Password: "abc123"})
		assert.ErrorIs(t, err, errStorage)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("health", func(t *testing.T) {
		db := &mockstorage.StorageMock{}
		db.On("Ping", mock.Anything).Return(errStorage).Once()
		db.On("Ping", mock.Anything).Return(nil)

		svc := New(db, passwords.Bcrypt{Cost: bcrypt.MinCost})
		assert.ErrorIs(t, svc.Health(ctx), errStorage)
		assert.NoError(t, svc.Health(ctx))
	})

	t.Run("stats", func(t *testing.T) {
		db := &mockstorage.StorageMock{
			OnCountUsers: func(ctx context.Context) (int64, error) {
				return 42, nil
			},
		}

		stats, err := New(db, passwords.Bcrypt{Cost: bcrypt.MinCost}).GetInternalStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.StatsResponse{Users: 42}, stats)
	})
}
