// Package service implements the register and login use cases on top of a
// record store, the credential checks and a password hasher.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/patric-chuzhbe/userauth/internal/credentials"
	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/models"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

type usersKeeper interface {
	FindByUsername(ctx context.Context, username string) (*user.User, bool, error)
	Append(ctx context.Context, usr *user.User) error
	CountUsers(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type store interface {
	usersKeeper
	pinger
}

type hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// ErrDuplicateUsername is returned by Register when the username is taken.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrInvalidCredentials is returned by Login for an unknown user and for a wrong
// password alike, so callers cannot tell the two apart.
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyPassword is hashed once and verified against when the username is unknown,
// keeping the cost of a failed login independent of whether the user exists.
const dummyPassword = "dummy-password-0"

type Service struct {
	db     store
	hasher hasher

	// registerMu makes the duplicate check and the append of Register one critical section.
	registerMu sync.Mutex

	dummyHashOnce sync.Once
	dummyHash     string
}

func New(db store, hasher hasher) *Service {
	return &Service{
		db:     db,
		hasher: hasher,
	}
}

// Register validates the request and appends a new user record.
// It returns a *credentials.ValidationError, ErrDuplicateUsername or a storage error.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) error {
	if err := credentials.ValidateRegistration(req); err != nil {
		return err
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	_, found, err := s.db.FindByUsername(ctx, req.Username)
	if err != nil {
		return fmt.Errorf("in internal/service/service.go/Register(): error while `s.db.FindByUsername()` calling: %w", err)
	}
	if found {
		return ErrDuplicateUsername
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("in internal/service/service.go/Register(): error while `s.hasher.Hash()` calling: %w", err)
	}

	err = s.db.Append(ctx, &user.User{
		Username:     req.Username,
		FirstName:    req.FirstName,
		ImageURL:     req.ImageURL,
		PasswordHash: passwordHash,
	})
	if errors.Is(err, storage.ErrUserExists) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("in internal/service/service.go/Register(): error while `s.db.Append()` calling: %w", err)
	}

	return nil
}

// Login checks the credentials and returns the sanitized view of the matching user.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*user.View, error) {
	if err := credentials.ValidateLogin(req); err != nil {
		return nil, err
	}

	usr, found, err := s.db.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Login(): error while `s.db.FindByUsername()` calling: %w", err)
	}

	if !found {
		s.hasher.Verify(s.getDummyHash(), req.Password)
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(usr.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	return usr.View(), nil
}

// Health checks the health of the record store.
func (s *Service) Health(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats returns the number of registered users.
func (s *Service) GetInternalStats(ctx context.Context) (models.StatsResponse, error) {
	users, err := s.db.CountUsers(ctx)
	if err != nil {
		return models.StatsResponse{}, err
	}

	return models.StatsResponse{
		Users: users,
	}, nil
}

func (s *Service) getDummyHash() string {
	s.dummyHashOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(dummyPassword)
	})
	return s.dummyHash
}
