package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/pong-tournament/internal/tournament"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) ListRoomParticipants(ctx context.Context, roomID int64) ([]string, error) {
	args := m.Called(ctx, roomID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockQuerier) GetRoomHost(ctx context.Context, roomID int64) (string, error) {
	args := m.Called(ctx, roomID)
	return args.String(0), args.Error(1)
}

func (m *mockQuerier) InsertMatchResult(ctx context.Context, arg InsertMatchResultParams) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *mockQuerier) SetPlacement(ctx context.Context, arg SetPlacementParams) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *mockQuerier) MarkRoomFinished(ctx context.Context, roomID int64) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

// mockTx only implements the transaction calls the store makes.
type mockTx struct {
	pgx.Tx
	mock.Mock
}

func (m *mockTx) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockTx) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockBeginner struct {
	mock.Mock
}

func (m *mockBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(pgx.Tx)
	return tx, args.Error(1)
}

func newTestPostgres(q *mockQuerier, txq *mockQuerier, db *mockBeginner) *Postgres {
	return &Postgres{
		db:     db,
		q:      q,
		withTx: func(pgx.Tx) querier { return txq },
		logger: zerolog.Nop(),
	}
}

func sampleResults() ([]tournament.MatchRecord, []tournament.Placement) {
	start := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	records := []tournament.MatchRecord{
		{Rank: 0, SlotIndex: 0, PlayerA: "ann", PlayerB: "bob", ScoreA: 5, ScoreB: 3, Winner: "ann", Start: start, End: start.Add(time.Minute)},
	}
	placements := []tournament.Placement{
		{Participant: "ann", Rank: -1},
		{Participant: "bob", Rank: 0},
	}
	return records, placements
}

func TestPostgres_GetBracketParticipants(t *testing.T) {
	q := new(mockQuerier)
	q.On("ListRoomParticipants", mock.Anything, int64(4)).Return([]string{"ann", "bob"}, nil)
	s := newTestPostgres(q, nil, nil)

	ids, err := s.GetBracketParticipants(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []tournament.ParticipantID{"ann", "bob"}, ids)
	q.AssertExpectations(t)
}

func TestPostgres_GetRoomHost(t *testing.T) {
	q := new(mockQuerier)
	q.On("GetRoomHost", mock.Anything, int64(1)).Return("ann", nil)
	q.On("GetRoomHost", mock.Anything, int64(2)).Return("", pgx.ErrNoRows)
	q.On("GetRoomHost", mock.Anything, int64(3)).Return("", errors.New("conn reset"))
	s := newTestPostgres(q, nil, nil)

	host, err := s.GetRoomHost(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, tournament.ParticipantID("ann"), host)

	_, err = s.GetRoomHost(context.Background(), 2)
	assert.ErrorIs(t, err, tournament.ErrRoomNotFound)

	_, err = s.GetRoomHost(context.Background(), 3)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, tournament.ErrRoomNotFound)
}

func TestPostgres_SaveTournament_Commits(t *testing.T) {
	records, placements := sampleResults()
	tx := new(mockTx)
	tx.On("Commit", mock.Anything).Return(nil)
	tx.On("Rollback", mock.Anything).Return(pgx.ErrTxClosed)
	db := new(mockBeginner)
	db.On("Begin", mock.Anything).Return(tx, nil)

	txq := new(mockQuerier)
	txq.On("InsertMatchResult", mock.Anything, InsertMatchResultParams{
		RoomID: 7, Rank: 0, Slot: 0, PlayerA: "ann", PlayerB: "bob", ScoreA: 5, ScoreB: 3, Winner: "ann",
		StartedAt: records[0].Start, EndedAt: records[0].End,
	}).Return(nil).Once()
	txq.On("SetPlacement", mock.Anything, SetPlacementParams{RoomID: 7, ParticipantID: "ann", PlacementRank: -1}).Return(nil).Once()
	txq.On("SetPlacement", mock.Anything, SetPlacementParams{RoomID: 7, ParticipantID: "bob", PlacementRank: 0}).Return(nil).Once()
	txq.On("MarkRoomFinished", mock.Anything, int64(7)).Return(int64(1), nil).Once()

	s := newTestPostgres(new(mockQuerier), txq, db)
	require.NoError(t, s.SaveTournament(context.Background(), 7, records, placements))

	txq.AssertExpectations(t)
	tx.AssertCalled(t, "Commit", mock.Anything)
}

func TestPostgres_SaveTournament_RollsBack(t *testing.T) {
	records, placements := sampleResults()

	t.Run("insert fails", func(t *testing.T) {
		tx := new(mockTx)
		tx.On("Rollback", mock.Anything).Return(nil)
		db := new(mockBeginner)
		db.On("Begin", mock.Anything).Return(tx, nil)
		txq := new(mockQuerier)
		txq.On("InsertMatchResult", mock.Anything, mock.Anything).Return(errors.New("unique violation"))

		s := newTestPostgres(new(mockQuerier), txq, db)
		err := s.SaveTournament(context.Background(), 7, records, placements)
		assert.Error(t, err)
		tx.AssertNotCalled(t, "Commit", mock.Anything)
		tx.AssertCalled(t, "Rollback", mock.Anything)
	})

	t.Run("room missing", func(t *testing.T) {
		tx := new(mockTx)
		tx.On("Rollback", mock.Anything).Return(nil)
		db := new(mockBeginner)
		db.On("Begin", mock.Anything).Return(tx, nil)
		txq := new(mockQuerier)
		txq.On("InsertMatchResult", mock.Anything, mock.Anything).Return(nil)
		txq.On("SetPlacement", mock.Anything, mock.Anything).Return(nil)
		txq.On("MarkRoomFinished", mock.Anything, int64(7)).Return(int64(0), nil)

		s := newTestPostgres(new(mockQuerier), txq, db)
		err := s.SaveTournament(context.Background(), 7, records, placements)
		assert.ErrorIs(t, err, tournament.ErrRoomNotFound)
		tx.AssertNotCalled(t, "Commit", mock.Anything)
	})

	t.Run("begin fails", func(t *testing.T) {
		db := new(mockBeginner)
		db.On("Begin", mock.Anything).Return(nil, errors.New("pool closed"))

		s := newTestPostgres(new(mockQuerier), new(mockQuerier), db)
		assert.Error(t, s.SaveTournament(context.Background(), 7, records, placements))
	})
}
