package engine

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidGeometry is returned by Validate for unusable physical constants.
var ErrInvalidGeometry = errors.New("invalid geometry config")

// GeometryConfig holds the immutable physical constants of a single match.
// The field is centred on the origin: x spans [-Width/2, Width/2] and
// y spans [-Height/2, Height/2]. Player A defends the left plane, B the right.
type GeometryConfig struct {
	Width  float64
	Height float64

	PaddleLength   float64
	PaddleSpeed    float64 // units per second
	PaddleFriction float64 // share of paddle velocity transferred to the ball on a hit
	PaddleInitY    float64

	BallInitX float64
	BallInitY float64
	BallSpeed float64 // units per second

	MatchPoint int
	TimeLimit  time.Duration

	DelayRankStart    time.Duration
	DelaySubgameStart time.Duration
	DelayScoring      time.Duration
	DelayRankEnd      time.Duration

	// ServeCone is the half-angle in degrees excluded around both axes for serves.
	ServeCone float64

	Epsilon float64
}

// DefaultGeometry returns the production defaults.
func DefaultGeometry() GeometryConfig {
	return GeometryConfig{
		Width:             800,
		Height:            500,
		PaddleLength:      100,
		PaddleSpeed:       300,
		PaddleFriction:    0.5,
		PaddleInitY:       0,
		BallInitX:         0,
		BallInitY:         0,
		BallSpeed:         400,
		MatchPoint:        5,
		TimeLimit:         180 * time.Second,
		DelayRankStart:    3 * time.Second,
		DelaySubgameStart: 3 * time.Second,
		DelayScoring:      1 * time.Second,
		DelayRankEnd:      3 * time.Second,
		ServeCone:         20,
		Epsilon:           1e-6,
	}
}

func (c GeometryConfig) XMax() float64 { return c.Width / 2 }
func (c GeometryConfig) XMin() float64 { return -c.Width / 2 }
func (c GeometryConfig) YMax() float64 { return c.Height / 2 }
func (c GeometryConfig) YMin() float64 { return -c.Height / 2 }

// PaddleYMax is the highest centre position a paddle can reach.
func (c GeometryConfig) PaddleYMax() float64 { return c.YMax() - c.PaddleLength/2 }

// PaddleYMin is the lowest centre position a paddle can reach.
func (c GeometryConfig) PaddleYMin() float64 { return c.YMin() + c.PaddleLength/2 }

// FltEq reports whether a and b are equal within the configured tolerance.
func (c GeometryConfig) FltEq(a, b float64) bool {
	return math.Abs(a-b) <= c.Epsilon
}

// within reports lo <= v <= hi, widened by the tolerance.
func (c GeometryConfig) within(v, lo, hi float64) bool {
	return v >= lo-c.Epsilon && v <= hi+c.Epsilon
}

// Validate checks the invariants the simulation relies on.
func (c GeometryConfig) Validate() error {
	switch {
	case c.Epsilon < 0:
		return fmt.Errorf("%w: epsilon must be >= 0", ErrInvalidGeometry)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: field must have positive size", ErrInvalidGeometry)
	case c.PaddleLength <= 0 || c.PaddleLength > c.Height:
		return fmt.Errorf("%w: paddle length %.3f out of range", ErrInvalidGeometry, c.PaddleLength)
	case c.PaddleSpeed < 0:
		return fmt.Errorf("%w: paddle speed must be >= 0", ErrInvalidGeometry)
	case c.BallSpeed <= 0:
		return fmt.Errorf("%w: ball speed must be > 0", ErrInvalidGeometry)
	case c.MatchPoint < 1:
		return fmt.Errorf("%w: match point must be >= 1", ErrInvalidGeometry)
	case c.TimeLimit <= 0:
		return fmt.Errorf("%w: time limit must be > 0", ErrInvalidGeometry)
	case c.ServeCone < 0 || c.ServeCone >= 45:
		return fmt.Errorf("%w: serve cone must be in [0, 45) degrees", ErrInvalidGeometry)
	case !c.within(c.BallInitX, c.XMin(), c.XMax()) || !c.within(c.BallInitY, c.YMin(), c.YMax()):
		return fmt.Errorf("%w: ball start outside the field", ErrInvalidGeometry)
	case !c.within(c.PaddleInitY, c.PaddleYMin(), c.PaddleYMax()):
		return fmt.Errorf("%w: paddle start outside its range", ErrInvalidGeometry)
	}
	return nil
}
