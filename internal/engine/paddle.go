package engine

import (
	"fmt"
	"strings"
	"time"
)

// Player identifies a side of a match. A defends the left plane, B the right.
type Player int

const (
	PlayerNone Player = iota
	PlayerA
	PlayerB
)

func (p Player) String() string {
	switch p {
	case PlayerA:
		return "A"
	case PlayerB:
		return "B"
	default:
		return "NOBODY"
	}
}

// Opponent returns the other side.
func (p Player) Opponent() Player {
	switch p {
	case PlayerA:
		return PlayerB
	case PlayerB:
		return PlayerA
	default:
		return PlayerNone
	}
}

type Key int

const (
	KeyUp Key = iota
	KeyDown
)

func (k Key) String() string {
	if k == KeyDown {
		return "DOWN"
	}
	return "UP"
}

type Action int

const (
	ActionPress Action = iota
	ActionRelease
)

func (a Action) String() string {
	if a == ActionRelease {
		return "RELEASE"
	}
	return "PRESS"
}

// KeyInput is a single keyboard event from a client.
type KeyInput struct {
	Key    Key
	Action Action
}

// ParseKey converts a wire key name.
func ParseKey(s string) (Key, error) {
	switch strings.ToUpper(s) {
	case "UP":
		return KeyUp, nil
	case "DOWN":
		return KeyDown, nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

// ParseAction converts a wire action name.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(s) {
	case "PRESS":
		return ActionPress, nil
	case "RELEASE":
		return ActionRelease, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// AckStatus is the handshake progress of one participant.
type AckStatus int

const (
	AckCreated AckStatus = iota
	AckStarted
	AckEnded
)

// Paddle is the per-player state of a match. It is owned by a single session
// goroutine and is not safe for concurrent use.
type Paddle struct {
	Player Player
	Y      float64
	VY     float64
	Score  int
	Ack    AckStatus

	cfg       GeometryConfig
	pressed   [2]bool
	last      *KeyInput
	updatedAt time.Time
}

func NewPaddle(cfg GeometryConfig, player Player, now time.Time) *Paddle {
	return &Paddle{
		Player:    player,
		Y:         cfg.PaddleInitY,
		cfg:       cfg,
		updatedAt: now,
	}
}

// UpdatedAt is the time the position was last integrated.
func (p *Paddle) UpdatedAt() time.Time { return p.updatedAt }

// Advance integrates the position up to now, clamped to the playable range.
func (p *Paddle) Advance(now time.Time) {
	elapsed := now.Sub(p.updatedAt).Seconds()
	if elapsed < 0 {
		return
	}
	y := p.Y + p.VY*elapsed
	if y > p.cfg.PaddleYMax() {
		y = p.cfg.PaddleYMax()
	}
	if y < p.cfg.PaddleYMin() {
		y = p.cfg.PaddleYMin()
	}
	p.Y = y
	p.updatedAt = now
}

// ApplyKey applies a keyboard event at now. It reports false when the input
// repeats the previous one and was ignored.
func (p *Paddle) ApplyKey(in KeyInput, now time.Time) bool {
	if p.last != nil && *p.last == in {
		return false
	}
	p.Advance(now)

	other := KeyUp
	if in.Key == KeyUp {
		other = KeyDown
	}

	switch in.Action {
	case ActionPress:
		p.pressed[in.Key] = true
		p.VY = p.velocityFor(in.Key)
	case ActionRelease:
		p.pressed[in.Key] = false
		if p.pressed[other] {
			p.VY = p.velocityFor(other)
		} else {
			p.VY = 0
		}
	}

	last := in
	p.last = &last
	return true
}

func (p *Paddle) velocityFor(k Key) float64 {
	if k == KeyUp {
		return p.cfg.PaddleSpeed
	}
	return -p.cfg.PaddleSpeed
}

// Hit reports whether a ball at yBall on this paddle's plane is returned.
func (p *Paddle) Hit(yBall float64) bool {
	half := p.cfg.PaddleLength / 2
	return p.cfg.within(yBall, p.Y-half, p.Y+half)
}
