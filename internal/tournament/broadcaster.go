package tournament

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/pong-tournament/internal/match"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

const publishTimeout = 2 * time.Second

// roomEvent is the Pub/Sub envelope of a room event.
type roomEvent struct {
	RoomID  int64           `json:"room_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Broadcaster publishes room events on Redis Pub/Sub and forwards every
// published event to the room sockets held by this instance.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

// NewBroadcaster creates a Pub/Sub powered room broadcaster.
func NewBroadcaster(redis *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = "pong:room-events"
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "room_broadcaster").Logger(),
	}
}

// Room returns an emitter that publishes to every instance.
func (b *Broadcaster) Room(roomID int64) match.Emitter {
	return &roomPublisher{b: b, roomID: roomID}
}

type roomPublisher struct {
	b      *Broadcaster
	roomID int64
}

func (p *roomPublisher) Emit(event string, payload any) error {
	data, err := encodeRoomEvent(p.roomID, event, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.b.redis.Publish(ctx, p.b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Run subscribes to the room channel and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	evt, err := decodeRoomEvent(payload)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode room event")
		return
	}

	msg := ws.Message{Type: evt.Type, Payload: evt.Payload}
	if err := b.hub.BroadcastToChannel(ws.RoomChannel(evt.RoomID), msg); err != nil {
		b.logger.Warn().Err(err).Int64("room_id", evt.RoomID).Str("type", evt.Type).Msg("failed to broadcast room event")
	}
}

func encodeRoomEvent(roomID int64, event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return json.Marshal(roomEvent{RoomID: roomID, Type: event, Payload: raw})
}

func decodeRoomEvent(payload string) (roomEvent, error) {
	var evt roomEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return roomEvent{}, err
	}
	if evt.Type == "" {
		return roomEvent{}, fmt.Errorf("room event without type")
	}
	return evt, nil
}

// HubChannels routes match events straight to the local hub and room events
// through the broadcaster when one is configured.
type HubChannels struct {
	hub   *ws.Hub
	rooms *Broadcaster
}

func NewHubChannels(hub *ws.Hub, rooms *Broadcaster) *HubChannels {
	return &HubChannels{hub: hub, rooms: rooms}
}

func (c *HubChannels) Room(roomID int64) match.Emitter {
	if c.rooms != nil {
		return c.rooms.Room(roomID)
	}
	return c.hub.Channel(ws.RoomChannel(roomID))
}

func (c *HubChannels) Match(roomID int64, rank, slot int) match.Emitter {
	return c.hub.Channel(ws.MatchChannel(roomID, rank, slot))
}
