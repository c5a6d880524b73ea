package tournament

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/pong-tournament/internal/match"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetBracketParticipants(ctx context.Context, roomID int64) ([]ParticipantID, error) {
	args := m.Called(ctx, roomID)
	ids, _ := args.Get(0).([]ParticipantID)
	return ids, args.Error(1)
}

func (m *mockStore) GetRoomHost(ctx context.Context, roomID int64) (ParticipantID, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(ParticipantID), args.Error(1)
}

func (m *mockStore) SaveTournament(ctx context.Context, roomID int64, records []MatchRecord, placements []Placement) error {
	return m.Called(ctx, roomID, records, placements).Error(0)
}

type mockLocker struct {
	mock.Mock
	unlocked atomic.Int32
}

func (m *mockLocker) LockRoom(ctx context.Context, roomID int64, ttl time.Duration) (func() error, error) {
	args := m.Called(ctx, roomID, ttl)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func() error {
		m.unlocked.Add(1)
		return nil
	}, nil
}

func newTestManager(store Store, locks RoomLocker) (*Manager, *scriptedChannels) {
	channels := &scriptedChannels{room: &recordingEmitter{}}
	m := NewManager(store, locks, &memorySnapshots{}, channels, nil, fastOptions(), zerolog.Nop())
	channels.lookup = func(rank, slot int) (*match.Session, bool) {
		return m.LookupSession(1, rank, slot)
	}
	return m, channels
}

func TestManager_StartRejections(t *testing.T) {
	t.Run("room not found", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetRoomHost", mock.Anything, int64(1)).Return(ParticipantID(""), ErrRoomNotFound)
		m, _ := newTestManager(store, nil)

		_, err := m.Start(context.Background(), 1, "p-0")
		assert.ErrorIs(t, err, ErrRoomNotFound)
		store.AssertExpectations(t)
	})

	t.Run("not host", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetRoomHost", mock.Anything, int64(1)).Return(ParticipantID("p-0"), nil)
		m, _ := newTestManager(store, nil)

		_, err := m.Start(context.Background(), 1, "p-1")
		assert.ErrorIs(t, err, ErrNotHost)
		assert.False(t, m.Running(1))
	})

	t.Run("lock held elsewhere", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetRoomHost", mock.Anything, int64(1)).Return(ParticipantID("p-0"), nil)
		locks := new(mockLocker)
		locks.On("LockRoom", mock.Anything, int64(1), time.Minute).Return(errors.New("lock held"))
		m, _ := newTestManager(store, locks)

		_, err := m.Start(context.Background(), 1, "p-0")
		assert.ErrorIs(t, err, ErrTournamentRunning)
		assert.False(t, m.Running(1))
		locks.AssertExpectations(t)
	})
}

func TestManager_RejectsSecondStart(t *testing.T) {
	store := &memoryStore{host: "p-0", participants: participants(2), release: make(chan struct{})}
	locks := new(mockLocker)
	locks.On("LockRoom", mock.Anything, int64(1), time.Minute).Return(nil)
	m, _ := newTestManager(store, locks)

	runID, err := m.Start(context.Background(), 1, "p-0")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, runID)
	assert.True(t, m.Running(1))

	_, err = m.Start(context.Background(), 1, "p-0")
	assert.ErrorIs(t, err, ErrTournamentRunning)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	assert.False(t, m.Running(1))
	assert.Equal(t, int32(1), locks.unlocked.Load())
	assert.Equal(t, 0, store.saves)
}

func TestManager_SlowLockDoesNotBlockReaders(t *testing.T) {
	store := &memoryStore{host: "p-0", participants: participants(2), release: make(chan struct{})}
	entered := make(chan struct{})
	proceed := make(chan struct{})
	locks := new(mockLocker)
	locks.On("LockRoom", mock.Anything, int64(1), time.Minute).
		Run(func(mock.Arguments) {
			close(entered)
			<-proceed
		}).
		Return(nil).Once()
	m, _ := newTestManager(store, locks)

	started := make(chan error, 1)
	go func() {
		_, err := m.Start(context.Background(), 1, "p-0")
		started <- err
	}()
	<-entered

	readers := make(chan struct{})
	go func() {
		m.Running(2)
		m.LookupSession(2, 0, 0)
		close(readers)
	}()
	select {
	case <-readers:
	case <-time.After(time.Second):
		t.Fatal("readers blocked while the room lock was being acquired")
	}

	_, err := m.Start(context.Background(), 1, "p-0")
	assert.ErrorIs(t, err, ErrTournamentRunning, "the room is reserved while its lock is pending")

	close(proceed)
	require.NoError(t, <-started)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	assert.False(t, m.Running(1))
	assert.Equal(t, int32(1), locks.unlocked.Load())
	locks.AssertExpectations(t)
}

func TestManager_RunsTournamentToCompletion(t *testing.T) {
	store := &memoryStore{host: "p-0", participants: participants(2)}
	locks := new(mockLocker)
	locks.On("LockRoom", mock.Anything, int64(1), time.Minute).Return(nil)
	m, channels := newTestManager(store, locks)

	_, err := m.Start(context.Background(), 1, "p-0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tournament did not finish")
	}

	assert.False(t, m.Running(1))
	assert.Equal(t, 1, store.saves)
	assert.Len(t, store.records, 1)
	assert.Equal(t, int32(1), locks.unlocked.Load())
	assert.NotContains(t, channels.room.names(), "destroyed")

	snap, ok := m.Snapshot(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, -1, snap.RankOngoing)

	_, ok = m.LookupSession(1, 0, 0)
	assert.False(t, ok)
}
