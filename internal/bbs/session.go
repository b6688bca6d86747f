package bbs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/andy6609/bbs-server/internal/auth"
	"github.com/andy6609/bbs-server/internal/store"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiCyan   = "\x1b[36m"
	ansiYellow = "\x1b[33m"
)

const welcomeBanner = "\r\n" + ansiCyan + "\r\n" +
	"==========================================\r\n" +
	"           WELCOME TO THE BBS\r\n" +
	"==========================================\r\n" +
	ansiReset + "\r\n"

const mainMenu = "\r\n" + ansiGreen + "Main Menu" + ansiReset + "\r\n" +
	"[1] Read messages\r\n" +
	"[2] Post a message\r\n" +
	"[3] Who's online\r\n" +
	"[4] Log out\r\n" +
	"\r\n" +
	"Choice?> "

// Session drives one connection from greeting through authentication to the
// menu loop. It exclusively owns its Transport; Presence and the Store are
// shared with every other session and outlive this one.
type Session struct {
	transport   *Transport
	store       store.Store
	hasher      auth.Hasher
	presence    *Presence
	logger      *slog.Logger
	recentLimit int
}

// Run executes the session to completion. Teardown — presence removal and
// transport release — happens in the deferred block below and nowhere else,
// so every exit path (logout, idle timeout, failed auth, peer disconnect)
// funnels through it exactly once.
func (s *Session) Run(ctx context.Context) {
	start := time.Now()
	SessionsTotal.Inc()

	username := ""
	defer func() {
		if username != "" {
			s.presence.Remove(username)
		}
		_ = s.transport.Close()
		SessionDuration.Observe(time.Since(start).Seconds())
	}()

	_ = s.transport.WriteString(welcomeBanner)

	name, ok := s.authenticate(ctx)
	if !ok {
		// Best effort; the peer may already be gone.
		_ = s.transport.WriteString("Goodbye.\r\n")
		return
	}

	username = name
	s.presence.Add(username)
	s.logger.Info("user logged in", "username", username)

	_ = s.transport.WriteString("\r\nWelcome, " + username + "!\r\n")
	s.menuLoop(ctx, username)
}

// authenticate runs the login/registration sub-flow. Exactly one password
// attempt is allowed per connection; any timeout, disconnect, or failure
// ends the session without retry.
func (s *Session) authenticate(ctx context.Context) (string, bool) {
	if err := s.transport.WriteString("Username: "); err != nil {
		return "", false
	}
	line, err := s.transport.ReadLine()
	if err != nil {
		return "", false
	}
	username := strings.TrimSpace(line)

	acc, err := s.store.LookupAccount(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s.register(ctx, username)
	case err != nil:
		s.logger.Error("account lookup failed", "error", err)
		_ = s.transport.WriteString("Error looking up user.\r\n")
		return "", false
	default:
		return s.login(acc)
	}
}

func (s *Session) register(ctx context.Context, username string) (string, bool) {
	if err := s.transport.WriteString("New user '" + username + "'. Create password: "); err != nil {
		return "", false
	}
	pw, err := s.transport.ReadLine()
	if err != nil {
		return "", false
	}

	digest, err := s.hasher.Hash(pw)
	if err != nil {
		s.logger.Error("password hash failed", "error", err)
		_ = s.transport.WriteString("Error creating user.\r\n")
		return "", false
	}
	if _, err := s.store.CreateAccount(ctx, username, digest); err != nil {
		// Includes the race where another connection grabbed the name first.
		s.logger.Warn("account creation failed", "username", username, "error", err)
		_ = s.transport.WriteString("Error creating user.\r\n")
		return "", false
	}

	_ = s.transport.WriteString(ansiYellow + "User created." + ansiReset + "\r\n")
	return username, true
}

func (s *Session) login(acc *store.Account) (string, bool) {
	if err := s.transport.WriteString("Password: "); err != nil {
		return "", false
	}
	pw, err := s.transport.ReadLine()
	if err != nil {
		return "", false
	}

	if !s.hasher.Verify(pw, acc.PasswordHash) {
		LoginFailuresTotal.Inc()
		s.logger.Info("login failed", "username", acc.Username)
		_ = s.transport.WriteString("Login failed.\r\n")
		return "", false
	}
	return acc.Username, true
}

func (s *Session) menuLoop(ctx context.Context, username string) {
	for {
		if err := s.transport.WriteString(mainMenu); err != nil {
			return
		}
		choice, err := s.transport.ReadLine()
		if err != nil {
			_ = s.transport.WriteString("\r\nIdle timeout. Later.\r\n")
			return
		}

		switch choice {
		case "1":
			CommandsTotal.WithLabelValues("read").Inc()
			s.readMessages(ctx)
		case "2":
			CommandsTotal.WithLabelValues("post").Inc()
			s.postMessage(ctx, username)
		case "3":
			CommandsTotal.WithLabelValues("who").Inc()
			s.whoOnline()
		case "4":
			CommandsTotal.WithLabelValues("logout").Inc()
			_ = s.transport.WriteString("Logging out...\r\n")
			return
		default:
			CommandsTotal.WithLabelValues("invalid").Inc()
			_ = s.transport.WriteString("Invalid option.\r\n")
		}
	}
}

func (s *Session) readMessages(ctx context.Context) {
	msgs, err := s.store.ListRecentMessages(ctx, s.recentLimit)
	if err != nil {
		s.logger.Error("list messages failed", "error", err)
		_ = s.transport.WriteString("\r\nError reading messages.\r\n\r\n")
		return
	}
	if len(msgs) == 0 {
		_ = s.transport.WriteString("\r\nNo messages yet.\r\n\r\n")
		return
	}
	_ = s.transport.WriteString("\r\n--- Latest Messages ---\r\n")
	for _, m := range msgs {
		line := fmt.Sprintf("[%s] %s: %s\r\n", m.PostedAt.UTC().Format(time.RFC3339), m.Author, m.Body)
		_ = s.transport.WriteString(line)
	}
	_ = s.transport.WriteString("\r\n")
}

func (s *Session) postMessage(ctx context.Context, username string) {
	if err := s.transport.WriteString("\r\nEnter message (one line):\r\n> "); err != nil {
		return
	}
	body, err := s.transport.ReadLine()
	if err != nil {
		_ = s.transport.WriteString("\r\nTimed out.\r\n\r\n")
		return
	}
	body = strings.TrimSpace(body)
	if body == "" {
		_ = s.transport.WriteString("Canceled.\r\n\r\n")
		return
	}
	if _, err := s.store.AppendMessage(ctx, username, body); err != nil {
		s.logger.Error("post failed", "username", username, "error", err)
		_ = s.transport.WriteString("Error posting message.\r\n\r\n")
		return
	}
	_ = s.transport.WriteString("Posted.\r\n\r\n")
}

func (s *Session) whoOnline() {
	names := s.presence.Snapshot()
	_ = s.transport.WriteString("\r\n--- Users Online ---\r\n")
	if len(names) == 0 {
		_ = s.transport.WriteString("(nobody)\r\n\r\n")
		return
	}
	for _, name := range names {
		_ = s.transport.WriteString("- " + name + "\r\n")
	}
	_ = s.transport.WriteString("\r\n")
}
