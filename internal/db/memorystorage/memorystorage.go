// Package memorystorage is a record store that lives only in process memory.
// It is used when neither a data directory nor a database is configured.
package memorystorage

import (
	"context"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

type MemoryStorage struct {
	mu    sync.RWMutex
	users []user.User
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users: []user.User{},
	}, nil
}

func (theStorage *MemoryStorage) LoadAll(ctx context.Context) ([]user.User, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	result := make([]user.User, len(theStorage.users))
	copy(result, theStorage.users)

	return result, nil
}

func (theStorage *MemoryStorage) FindByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	found := funk.Find(theStorage.users, func(usr user.User) bool {
		return usr.Username == username
	})
	if found == nil {
		return nil, false, nil
	}
	usr := found.(user.User)

	return &usr, true, nil
}

func (theStorage *MemoryStorage) Append(ctx context.Context, usr *user.User) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	existing := funk.Find(theStorage.users, func(existing user.User) bool {
		return existing.Username == usr.Username
	})
	if existing != nil {
		return storage.ErrUserExists
	}

	theStorage.users = append(theStorage.users, *usr)

	return nil
}

func (theStorage *MemoryStorage) CountUsers(ctx context.Context) (int64, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	return int64(len(theStorage.users)), nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
