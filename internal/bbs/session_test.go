package bbs

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/andy6609/bbs-server/internal/auth"
	"github.com/andy6609/bbs-server/internal/config"
	"github.com/andy6609/bbs-server/internal/store"
)

func startServer(t *testing.T, idle time.Duration) (*Server, *store.SQLite) {
	t.Helper()

	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "bbs.sqlite3"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.IdleTimeout = idle

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(cfg, st, &auth.Bcrypt{Cost: bcrypt.MinCost}, logger)
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		srv.Stop()
		st.Close()
	})
	return srv, st
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		c.t.Fatalf("send %q: %v", line, err)
	}
}

// expect reads until want appears in the stream, returning everything read.
func (c *testClient) expect(want string) string {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var buf strings.Builder
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			c.t.Fatalf("waiting for %q: %v (read so far: %q)", want, err, buf.String())
		}
		buf.WriteByte(b)
		if strings.Contains(buf.String(), want) {
			return buf.String()
		}
	}
}

// register walks a fresh username through the registration flow up to the
// first menu prompt.
func (c *testClient) register(username, password string) {
	c.t.Helper()
	c.expect("Username: ")
	c.send(username)
	c.expect("Create password: ")
	c.send(password)
	c.expect("User created.")
	c.expect("Welcome, " + username + "!")
	c.expect("Choice?> ")
}

func waitForPresence(t *testing.T, p *Presence, want ...string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		got := p.Snapshot()
		if len(got) == len(want) {
			match := true
			for i := range want {
				if got[i] != want[i] {
					match = false
					break
				}
			}
			if match {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("presence = %v, want %v", got, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSession_RegisterPostRead(t *testing.T) {
	srv, _ := startServer(t, 5*time.Second)

	c := dial(t, srv)
	c.register("alice", "hunter2")

	c.send("2")
	c.expect("Enter message (one line):")
	c.send("hello board")
	c.expect("Posted.")
	c.expect("Choice?> ")

	c.send("1")
	out := c.expect("alice: hello board")
	if !strings.Contains(out, "--- Latest Messages ---") {
		t.Fatalf("missing message header in %q", out)
	}

	c.send("4")
	c.expect("Logging out...")
	waitForPresence(t, srv.Presence())
}

func TestSession_LoginRoundTrip(t *testing.T) {
	srv, st := startServer(t, 5*time.Second)

	hasher := &auth.Bcrypt{Cost: bcrypt.MinCost}
	digest, err := hasher.Hash("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := st.CreateAccount(context.Background(), "alice", digest); err != nil {
		t.Fatalf("create account: %v", err)
	}

	c := dial(t, srv)
	c.expect("Username: ")
	c.send("alice")
	c.expect("Password: ")
	c.send("hunter2")
	c.expect("Welcome, alice!")
	waitForPresence(t, srv.Presence(), "alice")

	c.send("4")
	c.expect("Logging out...")
	waitForPresence(t, srv.Presence())
}

func TestSession_WrongPasswordDisconnects(t *testing.T) {
	srv, st := startServer(t, 5*time.Second)

	hasher := &auth.Bcrypt{Cost: bcrypt.MinCost}
	digest, _ := hasher.Hash("hunter2")
	if _, err := st.CreateAccount(context.Background(), "alice", digest); err != nil {
		t.Fatalf("create account: %v", err)
	}

	c := dial(t, srv)
	c.expect("Username: ")
	c.send("alice")
	c.expect("Password: ")
	c.send("wrong")
	c.expect("Login failed.")
	c.expect("Goodbye.")

	// One attempt per connection: the server closes instead of reprompting.
	c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, err := io.ReadAll(c.r); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}
	waitForPresence(t, srv.Presence())
}

func TestSession_WhoListsAllOnline(t *testing.T) {
	srv, _ := startServer(t, 5*time.Second)

	alice := dial(t, srv)
	alice.register("alice", "pw1")
	bob := dial(t, srv)
	bob.register("bob", "pw2")

	waitForPresence(t, srv.Presence(), "alice", "bob")

	alice.send("3")
	out := alice.expect("Choice?> ")
	if !strings.Contains(out, "- alice") || !strings.Contains(out, "- bob") {
		t.Fatalf("who output missing users: %q", out)
	}
}

func TestSession_WhoNobodyAfterLogout(t *testing.T) {
	srv, _ := startServer(t, 5*time.Second)

	alice := dial(t, srv)
	alice.register("alice", "pw1")
	alice.send("4")
	alice.expect("Logging out...")
	waitForPresence(t, srv.Presence())

	bob := dial(t, srv)
	bob.register("bob", "pw2")
	bob.send("3")
	out := bob.expect("Choice?> ")
	if !strings.Contains(out, "- bob") || strings.Contains(out, "- alice") {
		t.Fatalf("unexpected who output: %q", out)
	}
}

func TestSession_InvalidOptionKeepsMenu(t *testing.T) {
	srv, _ := startServer(t, 5*time.Second)

	c := dial(t, srv)
	c.register("alice", "pw")

	c.send("9")
	c.expect("Invalid option.")
	c.expect("Choice?> ")
	waitForPresence(t, srv.Presence(), "alice")
}

func TestSession_EmptyPostIsCanceled(t *testing.T) {
	srv, _ := startServer(t, 5*time.Second)

	c := dial(t, srv)
	c.register("alice", "pw")

	c.send("2")
	c.expect("Enter message (one line):")
	c.send("   ")
	c.expect("Canceled.")

	c.send("1")
	c.expect("No messages yet.")
}

func TestSession_AbruptDisconnectClearsPresence(t *testing.T) {
	srv, _ := startServer(t, 5*time.Second)

	c := dial(t, srv)
	c.register("carol", "pw")
	waitForPresence(t, srv.Presence(), "carol")

	c.conn.Close()
	waitForPresence(t, srv.Presence())
}

func TestSession_IdleTimeoutKicks(t *testing.T) {
	srv, _ := startServer(t, 300*time.Millisecond)

	c := dial(t, srv)
	c.register("dave", "pw")
	waitForPresence(t, srv.Presence(), "dave")

	// Send nothing; the server should kick and log the user out.
	c.expect("Idle timeout. Later.")
	waitForPresence(t, srv.Presence())
}

func TestSession_DuplicateLoginSharesPresenceEntry(t *testing.T) {
	srv, _ := startServer(t, 5*time.Second)

	first := dial(t, srv)
	first.register("alice", "pw")

	second := dial(t, srv)
	second.expect("Username: ")
	second.send("alice")
	second.expect("Password: ")
	second.send("pw")
	second.expect("Welcome, alice!")
	second.expect("Choice?> ")

	// The registry is a set: both sessions share one entry, and either
	// logout clears it for both.
	waitForPresence(t, srv.Presence(), "alice")
	first.send("4")
	first.expect("Logging out...")
	waitForPresence(t, srv.Presence())

	second.send("3")
	second.expect("(nobody)")
}

func TestSession_DuplicateRegistrationRaceTerminates(t *testing.T) {
	srv, st := startServer(t, 5*time.Second)

	c := dial(t, srv)
	c.expect("Username: ")
	c.send("eve")
	c.expect("Create password: ")

	// Another connection wins the name before the password comes back.
	hasher := &auth.Bcrypt{Cost: bcrypt.MinCost}
	digest, _ := hasher.Hash("other")
	if _, err := st.CreateAccount(context.Background(), "eve", digest); err != nil {
		t.Fatalf("create account: %v", err)
	}

	c.send("pw")
	c.expect("Error creating user.")
	c.expect("Goodbye.")
	waitForPresence(t, srv.Presence())
}
