package match

import (
	"time"

	"github.com/gokatarajesh/pong-tournament/internal/engine"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

func trackBallPayload(p ws.Precision, tr *engine.Trajectory) ws.TrackBallPayload {
	segments := make([]ws.SegmentPayload, 0, len(tr.Segments))
	for _, seg := range tr.Segments {
		segments = append(segments, ws.SegmentPayload{
			XStart: p.Coord(seg.Start.X),
			YStart: p.Coord(seg.Start.Y),
			XEnd:   p.Coord(seg.End.X),
			YEnd:   p.Coord(seg.End.Y),
			DX:     p.Speed(seg.VX),
			DY:     p.Speed(seg.VY),
		})
	}
	return ws.TrackBallPayload{
		TEvent:   p.Time(tr.Start),
		TEnd:     p.Time(tr.End),
		Heading:  tr.Heading.String(),
		Velocity: p.Speed(tr.Speed),
		Segments: segments,
	}
}

func trackPaddlePayload(p ws.Precision, pad *engine.Paddle) ws.TrackPaddlePayload {
	return ws.TrackPaddlePayload{
		TEvent: p.Time(pad.UpdatedAt()),
		Player: pad.Player.String(),
		Y:      p.Coord(pad.Y),
		DY:     p.Speed(pad.VY),
	}
}

// ConfigPayload serializes the geometry sent to clients before a tournament.
func ConfigPayload(p ws.Precision, cfg engine.GeometryConfig, now time.Time) ws.ConfigPayload {
	return ws.ConfigPayload{
		TEvent:            p.Time(now),
		Width:             p.Coord(cfg.Width),
		Height:            p.Coord(cfg.Height),
		PaddleLength:      p.Coord(cfg.PaddleLength),
		PaddleSpeed:       p.Speed(cfg.PaddleSpeed),
		PaddleFriction:    cfg.PaddleFriction,
		PaddleInitY:       p.Coord(cfg.PaddleInitY),
		BallInitX:         p.Coord(cfg.BallInitX),
		BallInitY:         p.Coord(cfg.BallInitY),
		BallSpeed:         p.Speed(cfg.BallSpeed),
		MatchPoint:        cfg.MatchPoint,
		TimeLimit:         p.Seconds(cfg.TimeLimit),
		DelayRankStart:    p.Seconds(cfg.DelayRankStart),
		DelaySubgameStart: p.Seconds(cfg.DelaySubgameStart),
		DelayScoring:      p.Seconds(cfg.DelayScoring),
		DelayRankEnd:      p.Seconds(cfg.DelayRankEnd),
	}
}
