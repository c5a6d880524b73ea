package engine

import (
	"fmt"
	"math"
)

// PointCategory classifies where a segment starts or ends.
type PointCategory int

const (
	PointInvalid PointCategory = iota
	PointCenter
	PointWallTop
	PointWallBottom
	PointPaddleLeft
	PointPaddleRight
)

func (p PointCategory) String() string {
	switch p {
	case PointCenter:
		return "center"
	case PointWallTop:
		return "wall_top"
	case PointWallBottom:
		return "wall_bottom"
	case PointPaddleLeft:
		return "paddle_left"
	case PointPaddleRight:
		return "paddle_right"
	default:
		return "invalid"
	}
}

// IsWall reports whether p lies on the top or bottom wall.
func (p PointCategory) IsWall() bool { return p == PointWallTop || p == PointWallBottom }

// IsPaddle reports whether p lies on either paddle plane.
func (p PointCategory) IsPaddle() bool { return p == PointPaddleLeft || p == PointPaddleRight }

// Point is a position on the field.
type Point struct {
	X float64
	Y float64
}

// Segment is one straight leg of the ball's path.
type Segment struct {
	Start     Point
	End       Point
	VX        float64
	VY        float64
	StartKind PointCategory
	EndKind   PointCategory
}

// Length is the euclidean length of the segment.
func (s Segment) Length() float64 {
	return math.Hypot(s.End.X-s.Start.X, s.End.Y-s.Start.Y)
}

// Valid reports whether the segment starts on the serve point, a wall or a
// paddle plane and ends on a wall or a paddle plane.
func (s Segment) Valid() bool {
	startOK := s.StartKind == PointCenter || s.StartKind.IsWall() || s.StartKind.IsPaddle()
	endOK := s.EndKind.IsWall() || s.EndKind.IsPaddle()
	return startOK && endOK
}

func (s Segment) String() string {
	return fmt.Sprintf("(%.4f, %.4f)[%s] -> (%.4f, %.4f)[%s] v=(%.4f, %.4f)",
		s.Start.X, s.Start.Y, s.StartKind, s.End.X, s.End.Y, s.EndKind, s.VX, s.VY)
}

func classifyStart(cfg GeometryConfig, p Point) PointCategory {
	if cfg.FltEq(p.X, cfg.BallInitX) && cfg.FltEq(p.Y, cfg.BallInitY) {
		return PointCenter
	}
	if kind := classifyWall(cfg, p); kind != PointInvalid {
		return kind
	}
	return classifyPaddle(cfg, p)
}

func classifyWall(cfg GeometryConfig, p Point) PointCategory {
	if !cfg.within(p.X, cfg.XMin(), cfg.XMax()) {
		return PointInvalid
	}
	switch {
	case cfg.FltEq(p.Y, cfg.YMax()):
		return PointWallTop
	case cfg.FltEq(p.Y, cfg.YMin()):
		return PointWallBottom
	}
	return PointInvalid
}

func classifyPaddle(cfg GeometryConfig, p Point) PointCategory {
	if !cfg.within(p.Y, cfg.YMin(), cfg.YMax()) {
		return PointInvalid
	}
	switch {
	case cfg.FltEq(p.X, cfg.XMax()):
		return PointPaddleRight
	case cfg.FltEq(p.X, cfg.XMin()):
		return PointPaddleLeft
	}
	return PointInvalid
}

// segmentToWall extends the ball from p until it meets the wall it is heading to.
// The caller must guarantee vy is not zero.
func segmentToWall(cfg GeometryConfig, p Point, vx, vy float64) Segment {
	yImpact := cfg.YMin()
	if vy > 0 {
		yImpact = cfg.YMax()
	}
	t := (yImpact - p.Y) / vy
	end := Point{X: p.X + vx*t, Y: yImpact}
	return Segment{
		Start:     p,
		End:       end,
		VX:        vx,
		VY:        vy,
		StartKind: classifyStart(cfg, p),
		EndKind:   classifyWall(cfg, end),
	}
}

// segmentToPaddle extends the ball from p until it meets the paddle plane it
// is heading to. The caller must guarantee vx is not zero.
func segmentToPaddle(cfg GeometryConfig, p Point, vx, vy float64) Segment {
	xImpact := cfg.XMin()
	if vx > 0 {
		xImpact = cfg.XMax()
	}
	t := (xImpact - p.X) / vx
	end := Point{X: xImpact, Y: p.Y + vy*t}
	return Segment{
		Start:     p,
		End:       end,
		VX:        vx,
		VY:        vy,
		StartKind: classifyStart(cfg, p),
		EndKind:   classifyPaddle(cfg, end),
	}
}
