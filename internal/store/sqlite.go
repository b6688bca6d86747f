package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/andy6609/bbs-server/internal/store/migrations"
)

// SQLite implements Store on a single sqlite database file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations. The connection pool is capped at one connection, which
// serializes all store access; that is plenty at board scale and keeps
// sqlite's writer locking out of the picture.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) LookupAccount(ctx context.Context, username string) (*Account, error) {
	row := sq.Select("username", "password_hash", "created_at").
		From("users").
		Where(sq.Eq{"username": username}).
		RunWith(s.db).
		QueryRowContext(ctx)

	acc := &Account{}
	err := row.Scan(&acc.Username, &acc.PasswordHash, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return acc, nil
}

func (s *SQLite) CreateAccount(ctx context.Context, username string, digest []byte) (*Account, error) {
	acc := &Account{
		Username:     username,
		PasswordHash: digest,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := sq.Insert("users").
		Columns("username", "password_hash", "created_at").
		Values(acc.Username, acc.PasswordHash, acc.CreatedAt).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return acc, nil
}

func (s *SQLite) AppendMessage(ctx context.Context, author, body string) (*Message, error) {
	msg := &Message{
		Author:   author,
		Body:     body,
		PostedAt: time.Now().UTC(),
	}

	res, err := sq.Insert("messages").
		Columns("author", "body", "posted_at").
		Values(msg.Author, msg.Body, msg.PostedAt).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	msg.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

func (s *SQLite) ListRecentMessages(ctx context.Context, limit int) ([]*Message, error) {
	rows, err := sq.Select("id", "author", "body", "posted_at").
		From("messages").
		OrderBy("id DESC").
		Limit(uint64(limit)).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		msg := &Message{}
		if err := rows.Scan(&msg.ID, &msg.Author, &msg.Body, &msg.PostedAt); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

// Stats reports row counts for the maintenance CLI. Not part of the Store
// interface; the server itself never needs it.
func (s *SQLite) Stats(ctx context.Context) (users, messages int64, err error) {
	row := sq.Select("count(*)").From("users").RunWith(s.db).QueryRowContext(ctx)
	if err = row.Scan(&users); err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	row = sq.Select("count(*)").From("messages").RunWith(s.db).QueryRowContext(ctx)
	if err = row.Scan(&messages); err != nil {
		return 0, 0, fmt.Errorf("count messages: %w", err)
	}
	return users, messages, nil
}

func isConstraintViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}
