// Package jsondb is a record store that keeps the user collection as a
// JSON array in a flat file. Every append rewrites the whole file.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/logger"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

const (
	UsersFileName     = "users.json"
	PlaylistsFileName = "playlists.json"
)

// CorruptDataPolicy decides what LoadAll does when the users file is not a valid JSON array.
type CorruptDataPolicy string

const (
	// PolicyTreatAsEmpty logs the problem and serves an empty collection.
	PolicyTreatAsEmpty CorruptDataPolicy = "empty"

	// PolicyFail surfaces storage.ErrCorruptData to the caller.
	PolicyFail CorruptDataPolicy = "fail"
)

type JSONDB struct {
	mu            sync.RWMutex
	dataDir       string
	usersPath     string
	playlistsPath string
	corruptPolicy CorruptDataPolicy
}

type initOptions struct {
	corruptPolicy CorruptDataPolicy
}

type InitOption func(*initOptions)

func WithCorruptDataPolicy(policy CorruptDataPolicy) InitOption {
	return func(options *initOptions) {
		options.corruptPolicy = policy
	}
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return err
	}
	_, err = dbFile.WriteString("[]")
	if err != nil {
		dbFile.Close()
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}

	_, err = file.Write(jsonData)
	if err != nil {
		file.Close()
		return fmt.Errorf("error writing to file: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("error closing file: %w", err)
	}

	return nil
}

// New prepares dataDir and both collection files. Existing files are left untouched,
// so calling New repeatedly on the same directory is safe.
func New(dataDir string, optionsProto ...InitOption) (*JSONDB, error) {
	options := &initOptions{
		corruptPolicy: PolicyTreatAsEmpty,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `os.MkdirAll()` calling: %w", err)
	}

	db := &JSONDB{
		dataDir:       dataDir,
		usersPath:     filepath.Join(dataDir, UsersFileName),
		playlistsPath: filepath.Join(dataDir, PlaylistsFileName),
		corruptPolicy: options.corruptPolicy,
	}

	for _, fileName := range []string{db.usersPath, db.playlistsPath} {
		if err := initDBFile(fileName); err != nil {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `initDBFile()` calling: %w", err)
		}
	}

	return db, nil
}

// UsersPath returns the location of the users collection file.
func (db *JSONDB) UsersPath() string {
	return db.usersPath
}

// PlaylistsPath returns the location of the reserved playlists collection file.
// Nothing reads or writes it after initialization.
func (db *JSONDB) PlaylistsPath() string {
	return db.playlistsPath
}

// readUsers must be called with db.mu held.
func (db *JSONDB) readUsers() ([]user.User, error) {
	data, err := os.ReadFile(db.usersPath)
	if errors.Is(err, os.ErrNotExist) {
		if err := initDBFile(db.usersPath); err != nil {
			return nil, err
		}
		return []user.User{}, nil
	}
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return []user.User{}, nil
	}

	var users []user.User
	if err := json.Unmarshal(data, &users); err != nil {
		if db.corruptPolicy == PolicyFail {
			return nil, fmt.Errorf("%w: %s: %v", storage.ErrCorruptData, db.usersPath, err)
		}
		if logger.Log != nil {
			logger.Log.Warnw("users file is not a valid JSON array, treating it as empty",
				"path", db.usersPath,
				"error", err,
			)
		}
		return []user.User{}, nil
	}
	if users == nil {
		users = []user.User{}
	}

	return users, nil
}

func (db *JSONDB) LoadAll(ctx context.Context) ([]user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.readUsers()
}

func (db *JSONDB) FindByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	users, err := db.readUsers()
	if err != nil {
		return nil, false, err
	}

	found := funk.Find(users, func(usr user.User) bool {
		return usr.Username == username
	})
	if found == nil {
		return nil, false, nil
	}
	usr := found.(user.User)

	return &usr, true, nil
}

func (db *JSONDB) Append(ctx context.Context, usr *user.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	users, err := db.readUsers()
	if err != nil {
		return err
	}

	existing := funk.Find(users, func(existing user.User) bool {
		return existing.Username == usr.Username
	})
	if existing != nil {
		return storage.ErrUserExists
	}

	users = append(users, *usr)

	return writeToJSONFile(db.usersPath, users)
}

func (db *JSONDB) CountUsers(ctx context.Context) (int64, error) {
	users, err := db.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	return int64(len(users)), nil
}

// Ping checks that the users file is still readable.
func (db *JSONDB) Ping(ctx context.Context) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, err := os.Stat(db.usersPath)

	return err
}

// Close is a no-op: every Append is already persisted.
func (db *JSONDB) Close() error {
	return nil
}
