package tournament

import (
	"fmt"
	"sync"

	"github.com/gokatarajesh/pong-tournament/internal/match"
)

type slotKey struct {
	rank int
	slot int
}

// Arena holds the sessions of the rank currently being played, indexed by
// (rank, slot). It is owned by one orchestrator; connection handlers only read it.
type Arena struct {
	mu       sync.RWMutex
	sessions map[slotKey]*match.Session
}

func NewArena() *Arena {
	return &Arena{sessions: make(map[slotKey]*match.Session)}
}

// Insert binds a session to its slot.
func (a *Arena) Insert(s *match.Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := slotKey{rank: s.Rank(), slot: s.Slot()}
	if _, exists := a.sessions[key]; exists {
		return fmt.Errorf("rank %d slot %d already has a session", key.rank, key.slot)
	}
	a.sessions[key] = s
	return nil
}

// RemoveRank drops every session of a rank.
func (a *Arena) RemoveRank(rank int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key := range a.sessions {
		if key.rank == rank {
			delete(a.sessions, key)
		}
	}
}

func (a *Arena) Lookup(rank, slot int) (*match.Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.sessions[slotKey{rank: rank, slot: slot}]
	return s, ok
}

func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}
