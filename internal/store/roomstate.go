package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

// ErrLockHeld is returned when another instance already runs the room.
var ErrLockHeld = errors.New("room lock already held")

const releaseLockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RoomState keeps cross-instance room state in Redis: the orchestrator lock
// and the latest bracket snapshot.
type RoomState struct {
	redis       redisClient
	snapshotTTL time.Duration
	logger      zerolog.Logger
}

func NewRoomState(client redisClient, snapshotTTL time.Duration, logger zerolog.Logger) *RoomState {
	if snapshotTTL <= 0 {
		snapshotTTL = 2 * time.Hour
	}
	return &RoomState{
		redis:       client,
		snapshotTTL: snapshotTTL,
		logger:      logger.With().Str("component", "room_state").Logger(),
	}
}

func lockKey(roomID int64) string     { return fmt.Sprintf("pong:room:%d:lock", roomID) }
func snapshotKey(roomID int64) string { return fmt.Sprintf("pong:room:%d:bracket", roomID) }

// LockRoom acquires the orchestrator lock of roomID. The returned function
// releases it only if this caller still owns it.
func (s *RoomState) LockRoom(ctx context.Context, roomID int64, ttl time.Duration) (func() error, error) {
	key := lockKey(roomID)
	token := uuid.New().String()

	acquired, err := s.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}
	s.logger.Debug().Int64("room_id", roomID).Dur("ttl", ttl).Msg("room lock acquired")

	unlock := func() error {
		// the request context is usually gone by the time the tournament ends
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.redis.Eval(ctx, releaseLockScript, []string{key}, token).Err()
	}
	return unlock, nil
}

func (s *RoomState) SaveBracketSnapshot(ctx context.Context, roomID int64, snapshot ws.TournamentPayload) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.redis.Set(ctx, snapshotKey(roomID), data, s.snapshotTTL).Err()
}

// LoadBracketSnapshot returns nil without error when no snapshot is cached.
func (s *RoomState) LoadBracketSnapshot(ctx context.Context, roomID int64) (*ws.TournamentPayload, error) {
	data, err := s.redis.Get(ctx, snapshotKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap ws.TournamentPayload
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RoomState) DeleteBracketSnapshot(ctx context.Context, roomID int64) error {
	if err := s.redis.Del(ctx, snapshotKey(roomID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
