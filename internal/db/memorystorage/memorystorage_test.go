package memorystorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

func Test(t *testing.T) {
	t.Run("The base memorystorage package test", func(t *testing.T) {
		theStorage, err := New()
		assert.NoError(t, err, "The memorystorage.New() should not return error")

		users, err := theStorage.LoadAll(context.Background())
		assert.NoError(t, err)
		assert.Empty(t, users)

		err = theStorage.Append(context.Background(), &user.User{Username: "alice", FirstName: "Alice"})
		assert.NoError(t, err, "The `theStorage.Append()` should not return error")

		err = theStorage.Append(context.Background(), &user.User{Username: "alice"})
		assert.ErrorIs(t, err, storage.ErrUserExists)

		usr, found, err := theStorage.FindByUsername(context.Background(), "alice")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Alice", usr.FirstName)

		_, found, err = theStorage.FindByUsername(context.Background(), "nobody")
		assert.NoError(t, err)
		assert.False(t, found)

		users, err = theStorage.LoadAll(context.Background())
		assert.NoError(t, err)
		assert.Len(t, users, 1)

		users[0].FirstName = "changed"
		usr, _, _ = theStorage.FindByUsername(context.Background(), "alice")
		assert.Equal(t, "Alice", usr.FirstName, "LoadAll should return a copy")

		count, err := theStorage.CountUsers(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, int64(1), count)

		err = theStorage.Ping(context.Background())
		assert.NoError(t, err, "The memorystorage.Ping() should not return error")

		err = theStorage.Close()
		assert.NoError(t, err, "The memorystorage.Close() should not return error")
	})
}
