package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/gokatarajesh/pong-tournament/internal/engine"
	"github.com/gokatarajesh/pong-tournament/internal/match"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"pong-tournament"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres   Postgres
	Redis      Redis
	Security   Security
	Game       Game
	Precision  Precision
	Handshake  Handshake
	Tournament Tournament
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// DSN renders the pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// Redis holds the lock, snapshot and pub/sub connection.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores the secret shared with the account service that issues identity tokens.
type Security struct {
	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"pong-accounts"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"1h"`
}

// Game groups the physical constants and timings of every match.
type Game struct {
	Width          float64 `env:"GAME_WIDTH" envDefault:"800"`
	Height         float64 `env:"GAME_HEIGHT" envDefault:"500"`
	PaddleLength   float64 `env:"GAME_PADDLE_LENGTH" envDefault:"100"`
	PaddleSpeed    float64 `env:"GAME_PADDLE_SPEED" envDefault:"300"`
	PaddleFriction float64 `env:"GAME_PADDLE_FRICTION" envDefault:"0.5"`
	PaddleInitY    float64 `env:"GAME_PADDLE_INIT_Y" envDefault:"0"`
	BallInitX      float64 `env:"GAME_BALL_INIT_X" envDefault:"0"`
	BallInitY      float64 `env:"GAME_BALL_INIT_Y" envDefault:"0"`
	BallSpeed      float64 `env:"GAME_BALL_SPEED" envDefault:"400"`
	MatchPoint     int     `env:"GAME_MATCH_POINT" envDefault:"5"`

	TimeLimit         time.Duration `env:"GAME_TIME_LIMIT" envDefault:"180s"`
	DelayRankStart    time.Duration `env:"GAME_DELAY_RANK_START" envDefault:"3s"`
	DelaySubgameStart time.Duration `env:"GAME_DELAY_SUBGAME_START" envDefault:"3s"`
	DelayScoring      time.Duration `env:"GAME_DELAY_SCORING" envDefault:"1s"`
	DelayRankEnd      time.Duration `env:"GAME_DELAY_RANK_END" envDefault:"3s"`

	// ServeCone is excluded around both axes when a serve angle is drawn.
	ServeCone float64 `env:"GAME_SERVE_CONE_DEGREES" envDefault:"20"`
	Epsilon   float64 `env:"GAME_EPSILON" envDefault:"1e-6"`
}

// Geometry converts the game settings into a validated engine config.
func (g Game) Geometry() (engine.GeometryConfig, error) {
	cfg := engine.GeometryConfig{
		Width:             g.Width,
		Height:            g.Height,
		PaddleLength:      g.PaddleLength,
		PaddleSpeed:       g.PaddleSpeed,
		PaddleFriction:    g.PaddleFriction,
		PaddleInitY:       g.PaddleInitY,
		BallInitX:         g.BallInitX,
		BallInitY:         g.BallInitY,
		BallSpeed:         g.BallSpeed,
		MatchPoint:        g.MatchPoint,
		TimeLimit:         g.TimeLimit,
		DelayRankStart:    g.DelayRankStart,
		DelaySubgameStart: g.DelaySubgameStart,
		DelayScoring:      g.DelayScoring,
		DelayRankEnd:      g.DelayRankEnd,
		ServeCone:         g.ServeCone,
		Epsilon:           g.Epsilon,
	}
	if err := cfg.Validate(); err != nil {
		return engine.GeometryConfig{}, err
	}
	return cfg, nil
}

// Precision sets the decimal places of wire values.
type Precision struct {
	TimeDigits  int `env:"PRECISION_TIME" envDefault:"3"`
	CoordDigits int `env:"PRECISION_COORD" envDefault:"1"`
	SpeedDigits int `env:"PRECISION_SPEED" envDefault:"2"`
}

func (p Precision) Policy() ws.Precision {
	return ws.Precision{TimeDigits: p.TimeDigits, CoordDigits: p.CoordDigits, SpeedDigits: p.SpeedDigits}
}

// Handshake bounds the start/end acknowledgement rounds.
type Handshake struct {
	MaxRetries int           `env:"HANDSHAKE_MAX_RETRIES" envDefault:"5"`
	EndAckWait time.Duration `env:"HANDSHAKE_END_ACK_WAIT" envDefault:"3s"`
}

func (h Handshake) Config() match.HandshakeConfig {
	return match.HandshakeConfig{MaxRetries: h.MaxRetries, EndAckWait: h.EndAckWait}
}

// Tournament holds per-room orchestration settings.
type Tournament struct {
	LockTTL       time.Duration `env:"TOURNAMENT_LOCK_TTL" envDefault:"2h"`
	SnapshotTTL   time.Duration `env:"TOURNAMENT_SNAPSHOT_TTL" envDefault:"2h"`
	EventsChannel string        `env:"TOURNAMENT_EVENTS_CHANNEL" envDefault:"pong:room-events"`
	Seed          int64         `env:"TOURNAMENT_SEED" envDefault:"0"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if _, err := cfg.Game.Geometry(); err != nil {
		return nil, fmt.Errorf("game config: %w", err)
	}
	if cfg.Handshake.MaxRetries < 1 {
		return nil, fmt.Errorf("handshake config: max retries must be >= 1")
	}
	return cfg, nil
}
