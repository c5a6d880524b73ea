package match

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gokatarajesh/pong-tournament/internal/engine"
)

// ErrHandshakeTimeout is the distinguished failure cause of a match whose
// participants did not acknowledge start or end in time.
var ErrHandshakeTimeout = errors.New("handshake timeout")

// State of a session.
type State int32

const (
	StateCreated State = iota
	StateAwaitingStartAck
	StateRunning
	StateScoring
	StateAwaitingEndAck
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAwaitingStartAck:
		return "awaiting_start_ack"
	case StateRunning:
		return "running"
	case StateScoring:
		return "scoring"
	case StateAwaitingEndAck:
		return "awaiting_end_ack"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Handshake phases.
const (
	PhaseStart = "start"
	PhaseEnd   = "end"
)

// HandshakeConfig bounds the start/end acknowledgement exchange.
type HandshakeConfig struct {
	MaxRetries int
	EndAckWait time.Duration
}

func DefaultHandshake() HandshakeConfig {
	return HandshakeConfig{MaxRetries: 5, EndAckWait: 3 * time.Second}
}

// HandshakeError reports which participants failed to acknowledge.
type HandshakeError struct {
	Phase    string
	Attempts int
	Culprits []engine.Player
}

func (e *HandshakeError) Error() string {
	names := make([]string, 0, len(e.Culprits))
	for _, p := range e.Culprits {
		names = append(names, p.String())
	}
	return fmt.Sprintf("%s handshake failed after %d attempts, culprit: %s", e.Phase, e.Attempts, strings.Join(names, ", "))
}

func (e *HandshakeError) Unwrap() error { return ErrHandshakeTimeout }

// InboundKind tags an event received from a participant.
type InboundKind int

const (
	InboundStartAck InboundKind = iota
	InboundEndedAck
	InboundKey
)

// Inbound is one participant event queued for the session goroutine.
type Inbound struct {
	Player engine.Player
	Kind   InboundKind
	Key    engine.KeyInput
}

// Result is the outcome of a completed session.
type Result struct {
	Winner engine.Player
	ScoreA int
	ScoreB int
	Start  time.Time
	End    time.Time
}

// Emitter publishes server events to the clients of one match or room.
type Emitter interface {
	Emit(event string, payload any) error
}
