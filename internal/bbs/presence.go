package bbs

import (
	"sort"
	"sync"
)

// Presence is the process-wide set of usernames currently logged in. It is
// the only shared mutable state in the server; every access goes through the
// mutex. Callers never see the backing map.
type Presence struct {
	mu     sync.Mutex
	online map[string]struct{}
}

func NewPresence() *Presence {
	return &Presence{online: make(map[string]struct{})}
}

func (p *Presence) Add(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[username] = struct{}{}
	OnlineUsers.Set(float64(len(p.online)))
}

// Remove is a no-op if username is absent.
func (p *Presence) Remove(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, username)
	OnlineUsers.Set(float64(len(p.online)))
}

// Snapshot returns a sorted copy of the set as of the instant of the call.
func (p *Presence) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.online))
	for name := range p.online {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
