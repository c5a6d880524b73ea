package tournament

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/pong-tournament/internal/engine"
	"github.com/gokatarajesh/pong-tournament/internal/match"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

// Options configures every orchestrator started by a Manager.
type Options struct {
	Geometry  engine.GeometryConfig
	Handshake match.HandshakeConfig
	Precision ws.Precision
	// Seed fixes the bracket shuffle and serves; 0 seeds from the clock.
	Seed    int64
	LockTTL time.Duration
}

// Orchestrator runs the tournament of one room: it owns the bracket, plays
// each rank as a set of concurrent sessions and persists the outcome.
type Orchestrator struct {
	roomID    int64
	runID     uuid.UUID
	opts      Options
	source    ParticipantSource
	writer    ResultWriter
	channels  Channels
	snapshots SnapshotStore
	recorder  Recorder
	rng       *rand.Rand
	arena     *Arena
	logger    zerolog.Logger

	bracket *Bracket
}

// NewOrchestrator wires an orchestrator. snapshots and recorder may be nil.
func NewOrchestrator(
	roomID int64,
	opts Options,
	source ParticipantSource,
	writer ResultWriter,
	channels Channels,
	snapshots SnapshotStore,
	recorder Recorder,
	logger zerolog.Logger,
) *Orchestrator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	runID := uuid.New()
	return &Orchestrator{
		roomID:    roomID,
		runID:     runID,
		opts:      opts,
		source:    source,
		writer:    writer,
		channels:  channels,
		snapshots: snapshots,
		recorder:  recorder,
		rng:       rand.New(rand.NewSource(seed)),
		arena:     NewArena(),
		logger: logger.With().
			Str("component", "orchestrator").
			Int64("room_id", roomID).
			Str("run_id", runID.String()).
			Logger(),
	}
}

func (o *Orchestrator) RunID() uuid.UUID { return o.runID }
func (o *Orchestrator) Arena() *Arena    { return o.arena }

// Run plays the tournament to completion. Any failed match aborts the whole
// tournament: a destroyed event is emitted and nothing is persisted.
func (o *Orchestrator) Run(ctx context.Context) error {
	room := o.channels.Room(o.roomID)
	o.recorder.TournamentStarted()

	participants, err := o.source.GetBracketParticipants(ctx, o.roomID)
	if err != nil {
		return o.abort(room, fmt.Errorf("load participants: %w", err))
	}

	o.emit(room, ws.TypeConfig, match.ConfigPayload(o.opts.Precision, o.opts.Geometry, time.Now()))

	bracket, err := BuildBracket(participants, o.rng)
	if err != nil {
		return o.abort(room, err)
	}
	o.bracket = bracket
	o.logger.Info().Int("participants", len(participants)).Int("ranks", bracket.NRanks()).Msg("tournament started")
	o.publishBracket(ctx, room, bracket.NRanks()-1)

	for rank := bracket.NRanks() - 1; rank >= 0; rank-- {
		results, err := o.playRank(ctx, rank)
		if err != nil {
			return o.abort(room, err)
		}
		for i, res := range results {
			if err := bracket.RecordResult(rank, i, res); err != nil {
				return o.abort(room, err)
			}
		}

		if err := sleepCtx(ctx, o.opts.Geometry.DelayRankEnd); err != nil {
			return o.abort(room, err)
		}
		if err := bracket.Advance(rank); err != nil {
			return o.abort(room, err)
		}
		o.arena.RemoveRank(rank)
		o.logger.Info().Int("rank", rank).Msg("rank finished")
		o.publishBracket(ctx, room, rank-1)
	}

	if err := o.persist(ctx); err != nil {
		return o.abort(room, err)
	}
	o.recorder.TournamentFinished(OutcomeCompleted)
	o.logger.Info().Str("champion", bracket.Champion().String()).Msg("tournament finished")
	return nil
}

// playRank runs every slot of rank concurrently and waits for all of them.
// The first failure cancels the siblings.
func (o *Orchestrator) playRank(ctx context.Context, rank int) ([]match.Result, error) {
	slots := o.bracket.Rank(rank)
	sessions := make([]*match.Session, len(slots))
	for i, slot := range slots {
		if slot.A == nil || slot.B == nil {
			return nil, fmt.Errorf("rank %d slot %d is missing a participant", rank, i)
		}
		s, err := match.NewSession(match.Options{
			Rank:         rank,
			Slot:         i,
			Participants: [2]string{slot.A.String(), slot.B.String()},
			Geometry:     o.opts.Geometry,
			Handshake:    o.opts.Handshake,
			Precision:    o.opts.Precision,
			Rand:         rand.New(rand.NewSource(o.rng.Int63())),
			Logger:       o.logger,
		}, o.channels.Match(o.roomID, rank, i))
		if err != nil {
			return nil, fmt.Errorf("rank %d slot %d: %w", rank, i, err)
		}
		if err := o.arena.Insert(s); err != nil {
			return nil, err
		}
		sessions[i] = s
	}

	if err := sleepCtx(ctx, o.opts.Geometry.DelayRankStart); err != nil {
		o.arena.RemoveRank(rank)
		return nil, err
	}

	results := make([]match.Result, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sessions {
		g.Go(func() error {
			res, err := s.Run(gctx)
			if err != nil {
				var herr *match.HandshakeError
				if errors.As(err, &herr) {
					o.recorder.HandshakeFailed(herr.Phase)
				}
				return fmt.Errorf("rank %d slot %d: %w", rank, i, err)
			}
			o.recorder.MatchFinished(rank, res.End.Sub(res.Start))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.arena.RemoveRank(rank)
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) persist(ctx context.Context) error {
	var records []MatchRecord
	for rank := o.bracket.NRanks() - 1; rank >= 0; rank-- {
		for i, slot := range o.bracket.Rank(rank) {
			records = append(records, MatchRecord{
				Rank:      rank,
				SlotIndex: i,
				PlayerA:   *slot.A,
				PlayerB:   *slot.B,
				ScoreA:    slot.ScoreA,
				ScoreB:    slot.ScoreB,
				Winner:    *slot.WinnerID(),
				Start:     slot.Start,
				End:       slot.End,
			})
		}
	}

	placed := o.bracket.Placements()
	placements := make([]Placement, 0, len(placed))
	for pid, rank := range placed {
		placements = append(placements, Placement{Participant: pid, Rank: rank})
	}

	if err := o.writer.SaveTournament(ctx, o.roomID, records, placements); err != nil {
		return fmt.Errorf("persist tournament: %w", err)
	}
	return nil
}

// abort tears the tournament down and tells the room why.
func (o *Orchestrator) abort(room match.Emitter, cause error) error {
	reason := ws.DestroyedInternalError
	if errors.Is(cause, match.ErrHandshakeTimeout) {
		reason = ws.DestroyedConnectionLost
	}
	o.bracket = nil
	o.dropSnapshot()
	o.emit(room, ws.TypeDestroyed, ws.DestroyedPayload{
		TEvent:           o.opts.Precision.Time(time.Now()),
		DestroyedBecause: reason,
	})
	o.recorder.TournamentFinished(OutcomeAborted)
	o.logger.Error().Err(cause).Str("destroyed_because", reason).Msg("tournament aborted")
	return cause
}

func (o *Orchestrator) publishBracket(ctx context.Context, room match.Emitter, rankOngoing int) {
	snapshot := o.bracket.Snapshot(o.opts.Precision, rankOngoing, time.Now())
	o.emit(room, ws.TypeUpdateTournament, snapshot)
	if o.snapshots == nil {
		return
	}
	if err := o.snapshots.SaveBracketSnapshot(ctx, o.roomID, snapshot); err != nil {
		o.logger.Warn().Err(err).Msg("bracket snapshot not cached")
	}
}

// dropSnapshot clears the cached bracket so late room sockets are not handed
// a tournament that no longer exists.
func (o *Orchestrator) dropSnapshot() {
	if o.snapshots == nil {
		return
	}
	// the run context is often already cancelled here
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.snapshots.DeleteBracketSnapshot(ctx, o.roomID); err != nil {
		o.logger.Warn().Err(err).Msg("bracket snapshot not cleared")
	}
}

func (o *Orchestrator) emit(e match.Emitter, event string, payload any) {
	if err := e.Emit(event, payload); err != nil {
		o.logger.Warn().Err(err).Str("event", event).Msg("room emit failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
