package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_RoundTrip(t *testing.T) {
	h := &Bcrypt{Cost: bcrypt.MinCost}

	digest, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, digest)
	assert.NotContains(t, string(digest), "hunter2")

	assert.True(t, h.Verify("hunter2", digest))
	assert.False(t, h.Verify("wrong", digest))
	assert.False(t, h.Verify("", digest))
}

func TestBcrypt_DigestsDiffer(t *testing.T) {
	h := &Bcrypt{Cost: bcrypt.MinCost}

	d1, err := h.Hash("same")
	require.NoError(t, err)
	d2, err := h.Hash("same")
	require.NoError(t, err)

	// Salted: two digests of the same password differ, both verify.
	assert.NotEqual(t, d1, d2)
	assert.True(t, h.Verify("same", d1))
	assert.True(t, h.Verify("same", d2))
}

func TestBcrypt_GarbageDigest(t *testing.T) {
	h := NewBcrypt()
	assert.False(t, h.Verify("anything", []byte("not a bcrypt digest")))
}
