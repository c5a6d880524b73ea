package tournament

import (
	"context"
	"errors"
	"time"

	"github.com/gokatarajesh/pong-tournament/internal/match"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotHost           = errors.New("only the room host can start the tournament")
	ErrTournamentRunning = errors.New("tournament already running for room")
)

// MatchRecord is the persisted outcome of one slot.
type MatchRecord struct {
	Rank      int
	SlotIndex int
	PlayerA   ParticipantID
	PlayerB   ParticipantID
	ScoreA    int
	ScoreB    int
	Winner    ParticipantID
	Start     time.Time
	End       time.Time
}

// Placement is the rank a participant was eliminated in; -1 for the champion.
type Placement struct {
	Participant ParticipantID
	Rank        int
}

// ParticipantSource reads the seeded participants of a room.
type ParticipantSource interface {
	GetBracketParticipants(ctx context.Context, roomID int64) ([]ParticipantID, error)
}

// ResultWriter persists every slot of a finished tournament and marks the
// room finished, atomically.
type ResultWriter interface {
	SaveTournament(ctx context.Context, roomID int64, records []MatchRecord, placements []Placement) error
}

// Store is the collaborator boundary of the tournament core.
type Store interface {
	ParticipantSource
	ResultWriter
	GetRoomHost(ctx context.Context, roomID int64) (ParticipantID, error)
}

// Channels hands out emitters for the room and for each match of a room.
type Channels interface {
	Room(roomID int64) match.Emitter
	Match(roomID int64, rank, slot int) match.Emitter
}

// SnapshotStore caches the latest bracket so late room sockets can catch up.
type SnapshotStore interface {
	SaveBracketSnapshot(ctx context.Context, roomID int64, snapshot ws.TournamentPayload) error
	LoadBracketSnapshot(ctx context.Context, roomID int64) (*ws.TournamentPayload, error)
	DeleteBracketSnapshot(ctx context.Context, roomID int64) error
}

// RoomLocker guarantees a single orchestrator per room across instances.
type RoomLocker interface {
	LockRoom(ctx context.Context, roomID int64, ttl time.Duration) (func() error, error)
}

// Recorder receives lifecycle observations for metrics.
type Recorder interface {
	TournamentStarted()
	TournamentFinished(outcome string)
	MatchFinished(rank int, duration time.Duration)
	HandshakeFailed(phase string)
}

// Tournament outcomes reported to the Recorder.
const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
)

type nopRecorder struct{}

func (nopRecorder) TournamentStarted()               {}
func (nopRecorder) TournamentFinished(string)        {}
func (nopRecorder) MatchFinished(int, time.Duration) {}
func (nopRecorder) HandshakeFailed(string)           {}
