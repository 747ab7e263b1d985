// Package passwords hashes and verifies user passwords with bcrypt.
package passwords

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a password into a salted one-way hash and checks candidates against it.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// Bcrypt is a Hasher backed by golang.org/x/crypto/bcrypt.
// A zero Cost means bcrypt.DefaultCost.
//
// bcrypt reads at most 72 bytes, so the password is first reduced to the
// base64 form of its SHA-256 digest (44 bytes). Any length is accepted and
// every byte of the password affects the hash.
type Bcrypt struct {
	Cost int
}

func preHash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword(preHash(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares in constant time with respect to the password.
func (b Bcrypt) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), preHash(password)) == nil
}
