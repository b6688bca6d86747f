// Command bbsctl provides maintenance operations on the board database:
//
//	bbsctl -db-path ./data/bbs.sqlite3 stats
//	bbsctl -db-path ./data/bbs.sqlite3 backup
//	bbsctl -db-path ./data/bbs.sqlite3 seed
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andy6609/bbs-server/internal/auth"
	"github.com/andy6609/bbs-server/internal/store"
)

func main() {
	dbPath := flag.String("db-path", "./data/bbs.sqlite3", "path to sqlite database file")
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		fmt.Fprintln(os.Stderr, "usage: bbsctl [-db-path file] stats|backup|seed")
		os.Exit(2)
	}

	if err := run(cmd, *dbPath); err != nil {
		fmt.Fprintln(os.Stderr, "bbsctl:", err)
		os.Exit(1)
	}
}

func run(cmd, dbPath string) error {
	// Backup works on the raw file and must not touch the database.
	if cmd == "backup" {
		return backup(dbPath)
	}

	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	switch cmd {
	case "stats":
		return stats(ctx, st)
	case "seed":
		return seed(ctx, st)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func stats(ctx context.Context, st *store.SQLite) error {
	users, messages, err := st.Stats(ctx)
	if err != nil {
		return err
	}

	latest := "none"
	msgs, err := st.ListRecentMessages(ctx, 1)
	if err != nil {
		return err
	}
	if len(msgs) > 0 {
		latest = msgs[0].PostedAt.UTC().Format(time.RFC3339)
	}

	fmt.Printf("users:          %d\n", users)
	fmt.Printf("messages:       %d\n", messages)
	fmt.Printf("latest message: %s\n", latest)
	return nil
}

func backup(dbPath string) error {
	src, err := os.Open(dbPath)
	if err != nil {
		return err
	}
	defer src.Close()

	backupPath := fmt.Sprintf("%s.backup_%s", dbPath, time.Now().Format("20060102_150405"))
	dst, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	fmt.Println("backed up to:", backupPath)
	return nil
}

func seed(ctx context.Context, st *store.SQLite) error {
	hasher := auth.NewBcrypt()

	users := []struct{ name, password string }{
		{"alice", "password123"},
		{"bob", "securepass"},
		{"charlie", "testpass"},
	}
	for _, u := range users {
		digest, err := hasher.Hash(u.password)
		if err != nil {
			return err
		}
		_, err = st.CreateAccount(ctx, u.name, digest)
		if errors.Is(err, store.ErrDuplicate) {
			fmt.Println("user exists:", u.name)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Println("created user:", u.name)
	}

	messages := []struct{ author, body string }{
		{"alice", "Welcome to our BBS! This is the first message."},
		{"bob", "Hello everyone! Great to be here."},
		{"charlie", "Testing the message system. How does it look?"},
		{"alice", "The system seems to be working well!"},
	}
	for _, m := range messages {
		if _, err := st.AppendMessage(ctx, m.author, m.body); err != nil {
			return err
		}
		fmt.Println("posted message from:", m.author)
	}
	return nil
}
