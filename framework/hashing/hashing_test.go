package hashing_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/km-arc/h3ravel/framework/hashing"
)

func TestNew_ClampsRounds(t *testing.T) {
	assert.Equal(t, hashing.DefaultRounds, hashing.New(0).Rounds())
	assert.Equal(t, bcrypt.MinCost, hashing.New(2).Rounds())
	assert.Equal(t, bcrypt.MaxCost, hashing.New(99).Rounds())
	assert.Equal(t, 6, hashing.New(6).Rounds())
}

func TestHasher_MakeAndCheck(t *testing.T) {
	h := hashing.New(bcrypt.MinCost)

	hash, err := h.Make("secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$04$"))

	assert.True(t, h.Check("secret", hash))
	assert.False(t, h.Check("Secret", hash))
	require.ErrorIs(t, h.Verify("nope", hash), hashing.ErrMismatch)
	require.Error(t, h.Verify("secret", "not-a-hash"))
}

func TestHasher_AcceptsLaravelPrefix(t *testing.T) {
	h := hashing.New(bcrypt.MinCost)
	hash, err := h.Make("secret")
	require.NoError(t, err)

	laravel := "$2y$" + strings.TrimPrefix(hash, "$2a$")
	assert.True(t, h.Check("secret", laravel))
}

func TestHasher_TooLong(t *testing.T) {
	_, err := hashing.New(bcrypt.MinCost).Make(strings.Repeat("x", 73))
	require.Error(t, err)
}

func TestHasher_NeedsRehash(t *testing.T) {
	low := hashing.New(bcrypt.MinCost)
	hash, err := low.Make("secret")
	require.NoError(t, err)

	assert.False(t, low.NeedsRehash(hash))
	assert.True(t, hashing.New(5).NeedsRehash(hash))
	assert.True(t, low.NeedsRehash("garbage"))
}
