package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/pong-tournament/internal/auth"
	"github.com/gokatarajesh/pong-tournament/internal/auth/jwt"
	"github.com/gokatarajesh/pong-tournament/internal/config"
	"github.com/gokatarajesh/pong-tournament/internal/logging"
	"github.com/gokatarajesh/pong-tournament/internal/match"
	"github.com/gokatarajesh/pong-tournament/internal/metrics"
	"github.com/gokatarajesh/pong-tournament/internal/server"
	"github.com/gokatarajesh/pong-tournament/internal/store"
	"github.com/gokatarajesh/pong-tournament/internal/tournament"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	tournaments *tournament.Manager
	rooms       *tournament.Broadcaster
	bgCancels   []context.CancelFunc
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	geometry, err := cfg.Game.Geometry()
	if err != nil {
		return nil, fmt.Errorf("game config: %w", err)
	}

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		TTL:    cfg.Security.TokenTTL,
		Issuer: cfg.Security.JWTIssuer,
	})
	identities := auth.NewResolver(tokens, logger)

	results := store.NewPostgres(pool, logger)
	roomState := store.NewRoomState(redisClient, cfg.Tournament.SnapshotTTL, logger)
	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)

	hub := ws.NewHub(logger)
	rooms := tournament.NewBroadcaster(redisClient, hub, cfg.Tournament.EventsChannel, logger)

	manager := tournament.NewManager(
		results,
		roomState,
		roomState,
		tournament.NewHubChannels(hub, rooms),
		recorder,
		tournament.Options{
			Geometry:  geometry,
			Handshake: cfg.Handshake.Config(),
			Precision: cfg.Precision.Policy(),
			Seed:      cfg.Tournament.Seed,
			LockTTL:   cfg.Tournament.LockTTL,
		},
		logger,
	)

	startHandlers := tournament.NewHTTPHandlers(manager, logger)
	roomSockets := tournament.NewRoomSocketHandler(manager, identities, hub, logger)
	matchSockets := match.NewHandler(manager, identities, hub, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, server.Routes{
		StartTournament: identities.Middleware(http.HandlerFunc(startHandlers.StartTournament)),
		RoomSocket:      http.HandlerFunc(roomSockets.HandleWebSocket),
		MatchSocket:     http.HandlerFunc(matchSockets.HandleWebSocket),
	})

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		tournaments: manager,
		rooms:       rooms,
		bgCancels:   make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	// running tournaments are destroyed, their rooms get a destroyed event
	if err := a.tournaments.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("tournament shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.rooms != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.rooms.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("room broadcaster stopped")
			}
		}()
	}
}
