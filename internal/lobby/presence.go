// internal/lobby/presence.go
package lobby

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Presence tracks which users hold a live realtime connection to each lobby. A user
// may be connected more than once, e.g. from two tabs.
type Presence struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]map[uuid.UUID]int // lobbyID -> userID -> connection count
}

// NewPresence creates an empty tracker.
func NewPresence() *Presence {
	return &Presence{lobbies: make(map[uuid.UUID]map[uuid.UUID]int)}
}

// Enter records a connection and returns the func that removes it. The returned func
// is safe to call more than once.
func (p *Presence) Enter(lobbyID, userID uuid.UUID) (leave func()) {
	p.mu.Lock()
	users, ok := p.lobbies[lobbyID]
	if !ok {
		users = make(map[uuid.UUID]int)
		p.lobbies[lobbyID] = users
	}
	users[userID]++
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { p.leave(lobbyID, userID) })
	}
}

func (p *Presence) leave(lobbyID, userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	users, ok := p.lobbies[lobbyID]
	if !ok {
		return
	}
	users[userID]--
	if users[userID] <= 0 {
		delete(users, userID)
	}
	if len(users) == 0 {
		// drop empty lobbies so the map does not grow forever
		delete(p.lobbies, lobbyID)
	}
}

// Online lists the users connected to a lobby, ordered for stable output.
func (p *Presence) Online(lobbyID uuid.UUID) []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]uuid.UUID, 0, len(p.lobbies[lobbyID]))
	for id := range p.lobbies[lobbyID] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
