package tournament

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/pong-tournament/internal/match"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

// Manager starts tournaments on request of a room host and keeps track of
// the orchestrators running on this instance.
type Manager struct {
	store     Store
	locks     RoomLocker
	snapshots SnapshotStore
	channels  Channels
	recorder  Recorder
	opts      Options
	logger    zerolog.Logger

	mu      sync.RWMutex
	running map[int64]*Orchestrator
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewManager creates a tournament manager. locks, snapshots and recorder may be nil.
func NewManager(store Store, locks RoomLocker, snapshots SnapshotStore, channels Channels, recorder Recorder, opts Options, logger zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:     store,
		locks:     locks,
		snapshots: snapshots,
		channels:  channels,
		recorder:  recorder,
		opts:      opts,
		logger:    logger.With().Str("component", "tournament_manager").Logger(),
		running:   make(map[int64]*Orchestrator),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Start launches the tournament of roomID in the background.
func (m *Manager) Start(ctx context.Context, roomID int64, requester ParticipantID) (uuid.UUID, error) {
	host, err := m.store.GetRoomHost(ctx, roomID)
	if err != nil {
		return uuid.Nil, err
	}
	if host != requester {
		return uuid.Nil, ErrNotHost
	}

	// reserve the room locally first; the distributed lock is a network round
	// trip and must not be taken under mu
	m.mu.Lock()
	if _, exists := m.running[roomID]; exists {
		m.mu.Unlock()
		return uuid.Nil, ErrTournamentRunning
	}
	o := NewOrchestrator(roomID, m.opts, m.store, m.store, m.channels, m.snapshots, m.recorder, m.logger)
	m.running[roomID] = o
	m.wg.Add(1)
	m.mu.Unlock()

	unlock := func() error { return nil }
	if m.locks != nil {
		unlock, err = m.locks.LockRoom(ctx, roomID, m.opts.LockTTL)
		if err != nil {
			m.release(roomID, o)
			m.wg.Done()
			return uuid.Nil, fmt.Errorf("%w: %v", ErrTournamentRunning, err)
		}
	}

	go func() {
		defer m.wg.Done()
		err := o.Run(m.baseCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn().Err(err).Int64("room_id", roomID).Msg("tournament ended with error")
		}

		m.release(roomID, o)

		if err := unlock(); err != nil {
			m.logger.Warn().Err(err).Int64("room_id", roomID).Msg("failed to release room lock")
		}
	}()

	m.logger.Info().Int64("room_id", roomID).Str("run_id", o.RunID().String()).Msg("tournament launched")
	return o.RunID(), nil
}

func (m *Manager) release(roomID int64, o *Orchestrator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[roomID] == o {
		delete(m.running, roomID)
	}
}

// LookupSession implements match.SessionLookup.
func (m *Manager) LookupSession(roomID int64, rank, slot int) (*match.Session, bool) {
	m.mu.RLock()
	o, ok := m.running[roomID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return o.Arena().Lookup(rank, slot)
}

// Running reports whether a tournament is in progress for roomID on this instance.
func (m *Manager) Running(roomID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.running[roomID]
	return ok
}

// Snapshot returns the latest cached bracket of a room, if any.
func (m *Manager) Snapshot(ctx context.Context, roomID int64) (*ws.TournamentPayload, bool) {
	if m.snapshots == nil {
		return nil, false
	}
	snap, err := m.snapshots.LoadBracketSnapshot(ctx, roomID)
	if err != nil {
		m.logger.Warn().Err(err).Int64("room_id", roomID).Msg("bracket snapshot unavailable")
		return nil, false
	}
	if snap == nil {
		return nil, false
	}
	return snap, true
}

// Shutdown cancels every running tournament and waits for them to stop.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every tournament started so far has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
