package engine

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidLaunch is returned for a launch vector that can never reach a paddle plane.
	ErrInvalidLaunch = errors.New("invalid launch vector")
	// ErrInvalidSegment is returned when a computed segment lands on neither a wall nor a paddle plane.
	ErrInvalidSegment = errors.New("invalid trajectory segment")
)

const maxWallBounces = 4096

// Heading is the horizontal direction of travel.
type Heading int

const (
	HeadingNone Heading = iota
	HeadingLeft
	HeadingRight
)

func (h Heading) String() string {
	switch h {
	case HeadingLeft:
		return "LEFT"
	case HeadingRight:
		return "RIGHT"
	default:
		return "NONE"
	}
}

// Opposite returns the reverse direction.
func (h Heading) Opposite() Heading {
	switch h {
	case HeadingLeft:
		return HeadingRight
	case HeadingRight:
		return HeadingLeft
	default:
		return HeadingNone
	}
}

// Defender is the player whose paddle plane the heading points at.
func (h Heading) Defender() Player {
	switch h {
	case HeadingLeft:
		return PlayerA
	case HeadingRight:
		return PlayerB
	default:
		return PlayerNone
	}
}

// HeadingOf returns the heading implied by a horizontal velocity.
func HeadingOf(vx float64) Heading {
	switch {
	case vx < 0:
		return HeadingLeft
	case vx > 0:
		return HeadingRight
	default:
		return HeadingNone
	}
}

// Trajectory is the bounce-resolved path of the ball from launch to a paddle plane.
// It is never mutated once computed.
type Trajectory struct {
	Segments []Segment
	ImpactY  float64
	Speed    float64
	Heading  Heading
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// ComputeTrajectory resolves the path of a ball launched from (x0, y0) with
// velocity (vx, vy) at t0 until it reaches the paddle plane it is heading to.
func ComputeTrajectory(cfg GeometryConfig, x0, y0, vx, vy float64, t0 time.Time) (*Trajectory, error) {
	if cfg.FltEq(vx, 0) {
		return nil, fmt.Errorf("%w: horizontal velocity is zero", ErrInvalidLaunch)
	}

	speed := math.Hypot(vx, vy)
	p := Point{X: x0, Y: y0}
	segments := make([]Segment, 0, 4)
	length := 0.0

	for bounces := 0; ; bounces++ {
		if bounces > maxWallBounces {
			return nil, fmt.Errorf("%w: more than %d wall bounces", ErrInvalidLaunch, maxWallBounces)
		}
		if !cfg.FltEq(vy, 0) {
			seg := segmentToWall(cfg, p, vx, vy)
			if seg.Valid() {
				segments = append(segments, seg)
				length += seg.Length()
				p = seg.End
				vy = -vy
				continue
			}
		}

		seg := segmentToPaddle(cfg, p, vx, vy)
		if !seg.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSegment, seg)
		}
		segments = append(segments, seg)
		length += seg.Length()
		break
	}

	duration := time.Duration(length / speed * float64(time.Second))
	last := segments[len(segments)-1]
	return &Trajectory{
		Segments: segments,
		ImpactY:  last.End.Y,
		Speed:    speed,
		Heading:  HeadingOf(vx),
		Start:    t0,
		End:      t0.Add(duration),
		Duration: duration,
	}, nil
}

// Length is the total path length.
func (t *Trajectory) Length() float64 {
	total := 0.0
	for _, s := range t.Segments {
		total += s.Length()
	}
	return total
}

// ImpactPoint is where the ball reaches the paddle plane.
func (t *Trajectory) ImpactPoint() Point {
	return t.Segments[len(t.Segments)-1].End
}

// Reflect returns the launch vector after the defending paddle, moving with
// paddleVy, returns the ball. The horizontal component flips, the vertical one
// picks up friction * paddleVy, and the result is rescaled to the trajectory
// speed. The angle from the horizontal is capped at 90-ServeCone degrees so a
// rally can never degenerate into a vertical ball.
func (t *Trajectory) Reflect(cfg GeometryConfig, paddleVy float64) (vx, vy float64) {
	last := t.Segments[len(t.Segments)-1]
	vx = -last.VX
	vy = last.VY + cfg.PaddleFriction*paddleVy

	maxAngle := (90 - cfg.ServeCone) * math.Pi / 180
	angle := math.Atan2(math.Abs(vy), math.Abs(vx))
	if angle > maxAngle {
		angle = maxAngle
	}
	vx = math.Copysign(t.Speed*math.Cos(angle), vx)
	vy = math.Copysign(t.Speed*math.Sin(angle), vy)
	return vx, vy
}
