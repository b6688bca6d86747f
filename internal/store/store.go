// Package store holds the durable records behind the board: accounts and
// messages. The rest of the server only sees the Store interface; the sqlite
// implementation lives alongside it.
package store

import (
	"context"
	"errors"
	"time"
)

// Account is an identity record. Username is the primary key and never
// changes once created. PasswordHash is an opaque digest produced by the
// auth package; the store never inspects it.
type Account struct {
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Message is an append-only board entry. ID is assigned by the store and
// defines the only ordering guarantee (insertion order).
type Message struct {
	ID       int64
	Author   string
	Body     string
	PostedAt time.Time
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type Store interface {
	// LookupAccount returns the account for username, or ErrNotFound.
	LookupAccount(ctx context.Context, username string) (*Account, error)

	// CreateAccount inserts a new account with the given credential digest.
	// Returns ErrDuplicate if the username is already taken, including the
	// race where another connection registered it first.
	CreateAccount(ctx context.Context, username string, digest []byte) (*Account, error)

	// AppendMessage inserts a message authored by username and returns it
	// with its assigned ID.
	AppendMessage(ctx context.Context, author, body string) (*Message, error)

	// ListRecentMessages returns up to limit messages, newest first.
	ListRecentMessages(ctx context.Context, limit int) ([]*Message, error)

	Close() error
}
