package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Queries holds the hand-written statements of the results schema.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy of q bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const listRoomParticipants = `
SELECT participant_id
FROM room_participants
WHERE room_id = $1
ORDER BY joined_at, participant_id
`

func (q *Queries) ListRoomParticipants(ctx context.Context, roomID int64) ([]string, error) {
	rows, err := q.db.Query(ctx, listRoomParticipants, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRoomHost = `
SELECT host_id FROM rooms WHERE id = $1
`

func (q *Queries) GetRoomHost(ctx context.Context, roomID int64) (string, error) {
	var host string
	err := q.db.QueryRow(ctx, getRoomHost, roomID).Scan(&host)
	return host, err
}

const insertMatchResult = `
INSERT INTO match_results (
    room_id, rank, slot, player_a, player_b, score_a, score_b, winner, started_at, ended_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type InsertMatchResultParams struct {
	RoomID    int64
	Rank      int32
	Slot      int32
	PlayerA   string
	PlayerB   string
	ScoreA    int32
	ScoreB    int32
	Winner    string
	StartedAt time.Time
	EndedAt   time.Time
}

func (q *Queries) InsertMatchResult(ctx context.Context, arg InsertMatchResultParams) error {
	_, err := q.db.Exec(ctx, insertMatchResult,
		arg.RoomID,
		arg.Rank,
		arg.Slot,
		arg.PlayerA,
		arg.PlayerB,
		arg.ScoreA,
		arg.ScoreB,
		arg.Winner,
		arg.StartedAt,
		arg.EndedAt,
	)
	return err
}

const setPlacement = `
UPDATE room_participants
SET placement_rank = $3
WHERE room_id = $1 AND participant_id = $2
`

type SetPlacementParams struct {
	RoomID        int64
	ParticipantID string
	PlacementRank int32
}

func (q *Queries) SetPlacement(ctx context.Context, arg SetPlacementParams) error {
	_, err := q.db.Exec(ctx, setPlacement, arg.RoomID, arg.ParticipantID, arg.PlacementRank)
	return err
}

const markRoomFinished = `
UPDATE rooms
SET status = 'finished', finished_at = now()
WHERE id = $1
`

// MarkRoomFinished returns the number of rooms updated.
func (q *Queries) MarkRoomFinished(ctx context.Context, roomID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, markRoomFinished, roomID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
