// Package storage declares the record store contract shared by the
// flat-file, in-memory and PostgreSQL backends.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/userauth/internal/user"
)

// ErrUserExists is returned by Append when the username is already taken.
var ErrUserExists = errors.New("user already exists")

// ErrCorruptData is returned when the persisted collection cannot be decoded
// and the store is configured to treat that as an integrity failure.
var ErrCorruptData = errors.New("persisted user data is corrupt")

type Storage interface {
	// LoadAll returns every record in insertion order.
	LoadAll(ctx context.Context) ([]user.User, error)

	FindByUsername(ctx context.Context, username string) (*user.User, bool, error)

	// Append adds one record to the end of the collection and persists it.
	Append(ctx context.Context, usr *user.User) error

	CountUsers(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
