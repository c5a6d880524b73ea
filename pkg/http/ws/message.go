package ws

import "encoding/json"

// Event names of the match and room protocol.
const (
	// Client -> Server
	TypeStartAck      = "start_ack"
	TypeKeyboardInput = "keyboard_input"
	TypeEndedAck      = "ended_ack"
	TypePing          = "ping"

	// Server -> Client (match channel)
	TypeStart             = "start"
	TypeUpdateTrackBall   = "update_track_ball"
	TypeUpdateTrackPaddle = "update_track_paddle"
	TypeUpdateScores      = "update_scores"
	TypeUpdateTimeLeft    = "update_time_left"
	TypeTimeUp            = "time_up"
	TypeEnded             = "ended"

	// Server -> Client (room channel)
	TypeConfig           = "config"
	TypeUpdateTournament = "update_tournament"
	TypeDestroyed        = "destroyed"

	TypeError = "error"
	TypePong  = "pong"
)

// Causes carried by a destroyed event.
const (
	DestroyedHostLeft       = "host_left"
	DestroyedConnectionLost = "connection_lost"
	DestroyedInternalError  = "internal_error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// Client Messages (incoming)

type KeyboardInputPayload struct {
	Key    string `json:"key"`    // UP or DOWN
	Action string `json:"action"` // PRESS or RELEASE
}

// Server Messages (outgoing)

type ConfigPayload struct {
	TEvent            float64 `json:"t_event"`
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
	PaddleLength      float64 `json:"l_paddle"`
	PaddleSpeed       float64 `json:"v_paddle"`
	PaddleFriction    float64 `json:"u_paddle"`
	PaddleInitY       float64 `json:"y_paddle_init"`
	BallInitX         float64 `json:"x_ball_init"`
	BallInitY         float64 `json:"y_ball_init"`
	BallSpeed         float64 `json:"v_ball"`
	MatchPoint        int     `json:"match_point"`
	TimeLimit         float64 `json:"t_limit"`
	DelayRankStart    float64 `json:"t_delay_rank_start"`
	DelaySubgameStart float64 `json:"t_delay_subgame_start"`
	DelayScoring      float64 `json:"t_delay_scoring"`
	DelayRankEnd      float64 `json:"t_delay_rank_end"`
}

type StartPayload struct {
	TEvent float64 `json:"t_event"`
}

type SegmentPayload struct {
	XStart float64 `json:"x_start"`
	YStart float64 `json:"y_start"`
	XEnd   float64 `json:"x_end"`
	YEnd   float64 `json:"y_end"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
}

type TrackBallPayload struct {
	TEvent   float64          `json:"t_event"`
	TEnd     float64          `json:"t_end"`
	Heading  string           `json:"heading"`
	Velocity float64          `json:"velocity"`
	Segments []SegmentPayload `json:"segments"`
}

type TrackPaddlePayload struct {
	TEvent float64 `json:"t_event"`
	Player string  `json:"player"`
	Y      float64 `json:"y"`
	DY     float64 `json:"dy"`
}

type ScoresPayload struct {
	TEvent float64 `json:"t_event"`
	ScoreA int     `json:"score_a"`
	ScoreB int     `json:"score_b"`
}

type TimeLeftPayload struct {
	TEvent   float64 `json:"t_event"`
	TimeLeft int     `json:"time_left"`
}

type TimeUpPayload struct {
	TEvent float64 `json:"t_event"`
}

type EndedPayload struct {
	TEvent float64 `json:"t_event"`
	Winner string  `json:"winner"`
}

type SlotPayload struct {
	PlayerA *string  `json:"player_a"`
	PlayerB *string  `json:"player_b"`
	Winner  string   `json:"winner"`
	ScoreA  int      `json:"score_a"`
	ScoreB  int      `json:"score_b"`
	TStart  *float64 `json:"t_start"`
	TEnd    *float64 `json:"t_end"`
}

type TournamentPayload struct {
	TEvent      float64         `json:"t_event"`
	NRanks      int             `json:"n_ranks"`
	RankOngoing int             `json:"rank_ongoing"`
	Subgames    [][]SlotPayload `json:"subgames"`
}

type DestroyedPayload struct {
	TEvent           float64 `json:"t_event"`
	DestroyedBecause string  `json:"destroyed_because"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
