package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/pong-tournament/internal/tournament"
)

type querier interface {
	ListRoomParticipants(ctx context.Context, roomID int64) ([]string, error)
	GetRoomHost(ctx context.Context, roomID int64) (string, error)
	InsertMatchResult(ctx context.Context, arg InsertMatchResultParams) error
	SetPlacement(ctx context.Context, arg SetPlacementParams) error
	MarkRoomFinished(ctx context.Context, roomID int64) (int64, error)
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres reads room membership and writes tournament results.
type Postgres struct {
	db     txBeginner
	q      querier
	withTx func(pgx.Tx) querier
	logger zerolog.Logger
}

// NewPostgres builds the tournament store on top of a pgx pool.
func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) *Postgres {
	q := New(pool)
	return &Postgres{
		db:     pool,
		q:      q,
		withTx: func(tx pgx.Tx) querier { return q.WithTx(tx) },
		logger: logger.With().Str("component", "postgres_store").Logger(),
	}
}

var _ tournament.Store = (*Postgres)(nil)

// GetBracketParticipants returns the participants of roomID in join order.
func (s *Postgres) GetBracketParticipants(ctx context.Context, roomID int64) ([]tournament.ParticipantID, error) {
	ids, err := s.q.ListRoomParticipants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants of room %d: %w", roomID, err)
	}
	out := make([]tournament.ParticipantID, len(ids))
	for i, id := range ids {
		out[i] = tournament.ParticipantID(id)
	}
	return out, nil
}

func (s *Postgres) GetRoomHost(ctx context.Context, roomID int64) (tournament.ParticipantID, error) {
	host, err := s.q.GetRoomHost(ctx, roomID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", tournament.ErrRoomNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get host of room %d: %w", roomID, err)
	}
	return tournament.ParticipantID(host), nil
}

// SaveTournament writes every slot, every placement and the finished room
// status in a single transaction.
func (s *Postgres) SaveTournament(ctx context.Context, roomID int64, records []tournament.MatchRecord, placements []tournament.Placement) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("rollback failed")
		}
	}()

	q := s.withTx(tx)
	for _, rec := range records {
		if err := q.InsertMatchResult(ctx, InsertMatchResultParams{
			RoomID:    roomID,
			Rank:      int32(rec.Rank),
			Slot:      int32(rec.SlotIndex),
			PlayerA:   rec.PlayerA.String(),
			PlayerB:   rec.PlayerB.String(),
			ScoreA:    int32(rec.ScoreA),
			ScoreB:    int32(rec.ScoreB),
			Winner:    rec.Winner.String(),
			StartedAt: rec.Start,
			EndedAt:   rec.End,
		}); err != nil {
			return fmt.Errorf("insert result rank %d slot %d: %w", rec.Rank, rec.SlotIndex, err)
		}
	}

	for _, p := range placements {
		if err := q.SetPlacement(ctx, SetPlacementParams{
			RoomID:        roomID,
			ParticipantID: p.Participant.String(),
			PlacementRank: int32(p.Rank),
		}); err != nil {
			return fmt.Errorf("set placement of %s: %w", p.Participant, err)
		}
	}

	n, err := q.MarkRoomFinished(ctx, roomID)
	if err != nil {
		return fmt.Errorf("mark room finished: %w", err)
	}
	if n == 0 {
		return tournament.ErrRoomNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info().Int64("room_id", roomID).Int("matches", len(records)).Msg("tournament persisted")
	return nil
}
