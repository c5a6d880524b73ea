package match

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/pong-tournament/internal/engine"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

const (
	inboxSize        = 64
	timeLeftInterval = time.Second
)

// errDecided stops a wait when the time limit settles the match.
var errDecided = errors.New("match decided by time limit")

// Options configures a Session.
type Options struct {
	Rank         int
	Slot         int
	Participants [2]string // A, B
	Geometry     engine.GeometryConfig
	Handshake    HandshakeConfig
	Precision    ws.Precision
	Rand         *rand.Rand
	Logger       zerolog.Logger
}

// Session runs one 1-vs-1 match. All game state is owned by the goroutine
// executing Run; participants talk to it only through Deliver.
type Session struct {
	opts    Options
	cfg     engine.GeometryConfig
	emitter Emitter
	inbox   chan Inbound
	state   atomic.Int32
	logger  zerolog.Logger

	tickEvery time.Duration

	paddles  [2]*engine.Paddle
	track    *engine.Trajectory
	tStart   time.Time
	limitAt  time.Time
	timeOver bool
	winner   engine.Player
}

// NewSession validates the geometry and prepares a session in StateCreated.
func NewSession(opts Options, emitter Emitter) (*Session, error) {
	if err := opts.Geometry.Validate(); err != nil {
		return nil, err
	}
	if opts.Handshake.MaxRetries < 1 {
		return nil, fmt.Errorf("handshake retries must be >= 1, got %d", opts.Handshake.MaxRetries)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Session{
		opts:      opts,
		cfg:       opts.Geometry,
		emitter:   emitter,
		inbox:     make(chan Inbound, inboxSize),
		tickEvery: timeLeftInterval,
		logger: opts.Logger.With().
			Str("component", "match_session").
			Int("rank", opts.Rank).
			Int("slot", opts.Slot).
			Logger(),
	}
	now := time.Now()
	s.paddles[0] = engine.NewPaddle(s.cfg, engine.PlayerA, now)
	s.paddles[1] = engine.NewPaddle(s.cfg, engine.PlayerB, now)
	return s, nil
}

func (s *Session) Rank() int               { return s.opts.Rank }
func (s *Session) Slot() int               { return s.opts.Slot }
func (s *Session) Participants() [2]string { return s.opts.Participants }

// State is safe to call from any goroutine.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

func (s *Session) paddle(p engine.Player) *engine.Paddle { return s.paddles[p-1] }

// SideOf returns the side a participant plays, or PlayerNone for outsiders.
func (s *Session) SideOf(participant string) engine.Player {
	switch participant {
	case s.opts.Participants[0]:
		return engine.PlayerA
	case s.opts.Participants[1]:
		return engine.PlayerB
	}
	return engine.PlayerNone
}

// Deliver queues an inbound event without blocking. It reports false when the
// event was dropped.
func (s *Session) Deliver(in Inbound) bool {
	if in.Player != engine.PlayerA && in.Player != engine.PlayerB {
		s.logger.Warn().Int("kind", int(in.Kind)).Msg("inbound event from non-participant ignored")
		return false
	}
	select {
	case s.inbox <- in:
		return true
	default:
		s.logger.Warn().Str("player", in.Player.String()).Msg("inbox full, inbound event dropped")
		return false
	}
}

// Run drives the match to completion. It returns the result once both
// participants acknowledged the end, or a *HandshakeError when either
// handshake runs out of attempts.
func (s *Session) Run(ctx context.Context) (Result, error) {
	defer s.setState(StateTerminated)

	s.setState(StateAwaitingStartAck)
	if err := s.handshake(ctx, PhaseStart); err != nil {
		return Result{}, err
	}
	s.limitAt = s.tStart.Add(s.cfg.TimeLimit)
	s.logger.Debug().Time("t_start", s.tStart).Msg("match started")

	if err := s.play(ctx); err != nil {
		return Result{}, err
	}

	tEnd := time.Now()
	s.setState(StateAwaitingEndAck)
	if err := s.handshake(ctx, PhaseEnd); err != nil {
		return Result{}, err
	}

	res := Result{
		Winner: s.winner,
		ScoreA: s.paddle(engine.PlayerA).Score,
		ScoreB: s.paddle(engine.PlayerB).Score,
		Start:  s.tStart,
		End:    tEnd,
	}
	s.logger.Info().
		Str("winner", res.Winner.String()).
		Int("score_a", res.ScoreA).
		Int("score_b", res.ScoreB).
		Msg("match finished")
	return res, nil
}

// play runs the rally loop until a winner is known.
func (s *Session) play(ctx context.Context) error {
	s.setState(StateRunning)

	// the ticker must be gone before the end handshake so no update_time_left
	// can follow ended
	tickCtx, stopTicker := context.WithCancel(ctx)
	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		s.broadcastTimeLeft(tickCtx, s.tStart, s.limitAt)
	}()
	defer func() {
		stopTicker()
		<-tickDone
	}()

	if err := s.serve(engine.HeadingNone, s.tStart); err != nil {
		return err
	}

	for {
		s.emit(ws.TypeUpdateTrackBall, trackBallPayload(s.opts.Precision, s.track))

		err := s.wait(ctx, s.track.End)
		if errors.Is(err, errDecided) {
			return nil
		}
		if err != nil {
			return err
		}

		defender := s.track.Heading.Defender()
		pad := s.paddle(defender)
		pad.Advance(time.Now())
		if pad.Hit(s.track.ImpactY) {
			vx, vy := s.track.Reflect(s.cfg, pad.VY)
			impact := s.track.ImpactPoint()
			next, err := engine.ComputeTrajectory(s.cfg, impact.X, impact.Y, vx, vy, s.track.End)
			if err != nil {
				return fmt.Errorf("reflect at y=%.3f: %w", impact.Y, err)
			}
			s.track = next
			continue
		}

		scorer := defender.Opponent()
		s.paddle(scorer).Score++
		s.emit(ws.TypeUpdateScores, ws.ScoresPayload{
			TEvent: s.opts.Precision.Time(time.Now()),
			ScoreA: s.paddle(engine.PlayerA).Score,
			ScoreB: s.paddle(engine.PlayerB).Score,
		})
		s.logger.Debug().
			Str("scorer", scorer.String()).
			Int("score_a", s.paddle(engine.PlayerA).Score).
			Int("score_b", s.paddle(engine.PlayerB).Score).
			Msg("point scored")

		s.winner = decideWinner(s.paddle(engine.PlayerA).Score, s.paddle(engine.PlayerB).Score, s.cfg.MatchPoint, s.timeOver)
		if s.winner != engine.PlayerNone {
			return nil
		}

		s.setState(StateScoring)
		err = s.wait(ctx, time.Now().Add(s.cfg.DelayScoring))
		if errors.Is(err, errDecided) {
			return nil
		}
		if err != nil {
			return err
		}
		s.setState(StateRunning)

		// the side that conceded receives the next serve
		if err := s.serve(s.track.Heading, time.Now()); err != nil {
			return err
		}
	}
}

func (s *Session) serve(heading engine.Heading, at time.Time) error {
	vx, vy := engine.RandomLaunch(s.opts.Rand, s.cfg.BallSpeed, s.cfg.ServeCone, heading)
	track, err := engine.ComputeTrajectory(s.cfg, s.cfg.BallInitX, s.cfg.BallInitY, vx, vy, at)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	s.track = track
	return nil
}

// handshake emits the phase event and waits for both acknowledgements,
// retrying up to the configured bound.
func (s *Session) handshake(ctx context.Context, phase string) error {
	want := engine.AckStarted
	if phase == PhaseEnd {
		want = engine.AckEnded
	}

	for attempt := 1; attempt <= s.opts.Handshake.MaxRetries; attempt++ {
		var until time.Time
		switch phase {
		case PhaseStart:
			s.tStart = time.Now().Add(s.cfg.DelaySubgameStart)
			until = s.tStart
			s.emit(ws.TypeStart, ws.StartPayload{TEvent: s.opts.Precision.Time(s.tStart)})
		case PhaseEnd:
			now := time.Now()
			until = now.Add(s.opts.Handshake.EndAckWait)
			s.emit(ws.TypeEnded, ws.EndedPayload{TEvent: s.opts.Precision.Time(now), Winner: s.winner.String()})
		}

		if err := s.wait(ctx, until); err != nil {
			return err
		}

		culprits := s.culprits(want)
		if len(culprits) == 0 {
			return nil
		}
		s.logger.Debug().Str("phase", phase).Int("attempt", attempt).Msg("handshake not acknowledged yet")
	}

	herr := &HandshakeError{
		Phase:    phase,
		Attempts: s.opts.Handshake.MaxRetries,
		Culprits: s.culprits(want),
	}
	s.logger.Error().Err(herr).Msg("handshake timeout")
	return herr
}

func (s *Session) culprits(want engine.AckStatus) []engine.Player {
	var out []engine.Player
	for _, p := range s.paddles {
		if p.Ack != want {
			out = append(out, p.Player)
		}
	}
	return out
}

// wait processes inbound events until the deadline passes. While running it
// also watches the time limit.
func (s *Session) wait(ctx context.Context, until time.Time) error {
	timer := time.NewTimer(time.Until(until))
	defer timer.Stop()

	var limitC <-chan time.Time
	if st := s.State(); (st == StateRunning || st == StateScoring) && !s.timeOver {
		limit := time.NewTimer(time.Until(s.limitAt))
		defer limit.Stop()
		limitC = limit.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case in := <-s.inbox:
			s.handleInbound(in)
		case <-limitC:
			limitC = nil
			s.timeOver = true
			s.winner = decideWinner(s.paddle(engine.PlayerA).Score, s.paddle(engine.PlayerB).Score, s.cfg.MatchPoint, true)
			if s.winner != engine.PlayerNone {
				s.logger.Debug().Str("winner", s.winner.String()).Msg("time limit reached with a leader")
				return errDecided
			}
			s.logger.Debug().Msg("time limit reached, sudden death")
			s.emit(ws.TypeTimeUp, ws.TimeUpPayload{TEvent: s.opts.Precision.Time(time.Now())})
		}
	}
}

func (s *Session) handleInbound(in Inbound) {
	pad := s.paddle(in.Player)
	switch in.Kind {
	case InboundStartAck:
		if s.State() == StateAwaitingStartAck {
			pad.Ack = engine.AckStarted
		}
	case InboundEndedAck:
		if s.State() == StateAwaitingEndAck {
			pad.Ack = engine.AckEnded
		}
	case InboundKey:
		if st := s.State(); st != StateRunning && st != StateScoring {
			s.logger.Debug().Str("player", in.Player.String()).Msg("key input outside of play ignored")
			return
		}
		if pad.ApplyKey(in.Key, time.Now()) {
			s.emit(ws.TypeUpdateTrackPaddle, trackPaddlePayload(s.opts.Precision, pad))
		}
	}
}

// broadcastTimeLeft emits the whole seconds remaining once per second until
// ctx is cancelled or the limit passes.
func (s *Session) broadcastTimeLeft(ctx context.Context, start, limitAt time.Time) {
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			left := limitAt.Sub(now)
			if left < 0 {
				return
			}
			if now.Before(start) {
				continue
			}
			s.emit(ws.TypeUpdateTimeLeft, ws.TimeLeftPayload{
				TEvent:   s.opts.Precision.Time(now),
				TimeLeft: int(left.Round(time.Second) / time.Second),
			})
		}
	}
}

func (s *Session) emit(event string, payload any) {
	if err := s.emitter.Emit(event, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", event).Msg("emit failed")
	}
}

// decideWinner applies the match-point rule, and after the time limit the
// leading side wins. Equal scores after the limit mean sudden death.
func decideWinner(scoreA, scoreB, matchPoint int, timeOver bool) engine.Player {
	switch {
	case scoreA >= matchPoint:
		return engine.PlayerA
	case scoreB >= matchPoint:
		return engine.PlayerB
	case timeOver && scoreA > scoreB:
		return engine.PlayerA
	case timeOver && scoreB > scoreA:
		return engine.PlayerB
	}
	return engine.PlayerNone
}
