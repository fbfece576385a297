// Package hashing hashes passwords with bcrypt (Laravel: Hash::make).
package hashing

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultRounds matches BCRYPT_ROUNDS' default.
const DefaultRounds = 10

// ErrMismatch is returned by Verify for a wrong password.
var ErrMismatch = errors.New("hashing: password does not match")

// Hasher is bound as "hash".
type Hasher struct {
	cost int
}

// New returns a bcrypt hasher. Rounds outside bcrypt's range are clamped.
func New(rounds int) *Hasher {
	switch {
	case rounds <= 0:
		rounds = DefaultRounds
	case rounds < bcrypt.MinCost:
		rounds = bcrypt.MinCost
	case rounds > bcrypt.MaxCost:
		rounds = bcrypt.MaxCost
	}
	return &Hasher{cost: rounds}
}

// Rounds is the configured cost.
func (h *Hasher) Rounds() int { return h.cost }

// Make hashes password. bcrypt only reads the first 72 bytes; longer input
// is rejected rather than silently truncated.
func (h *Hasher) Make(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing: %w", err)
	}
	return string(hash), nil
}

// Check reports whether password matches hash.
func (h *Hasher) Check(password, hash string) bool {
	return h.Verify(password, hash) == nil
}

// Verify is Check with the reason: ErrMismatch, or a malformed hash.
func (h *Hasher) Verify(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}

// NeedsRehash reports whether hash was made with a different cost.
func (h *Hasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.cost
}
