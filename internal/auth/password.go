// Package auth provides the credential hashing capability. The session layer
// only sees the Hasher interface; digests are opaque to everything else.
package auth

import "golang.org/x/crypto/bcrypt"

type Hasher interface {
	// Hash turns a plaintext password into an opaque digest.
	Hash(password string) ([]byte, error)

	// Verify reports whether password matches a digest previously produced
	// by Hash.
	Verify(password string, digest []byte) bool
}

var _ Hasher = (*Bcrypt)(nil)

type Bcrypt struct {
	Cost int
}

func NewBcrypt() *Bcrypt {
	return &Bcrypt{Cost: bcrypt.DefaultCost}
}

func (b *Bcrypt) Hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), b.Cost)
}

func (b *Bcrypt) Verify(password string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(password)) == nil
}
