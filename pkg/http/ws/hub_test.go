package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detachedConnection() *Connection {
	return NewConnection(nil, zerolog.Nop())
}

func drain(c *Connection) []Message {
	var out []Message
	for {
		select {
		case msg := <-c.sendCh:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHub_ChannelBroadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a, b, outsider := detachedConnection(), detachedConnection(), detachedConnection()
	for _, c := range []*Connection{a, b, outsider} {
		hub.Register(c)
	}

	room := RoomChannel(7)
	hub.Join(room, a.ID())
	hub.Join(room, b.ID())
	assert.Equal(t, 2, hub.Members(room))

	require.NoError(t, hub.Channel(room).Emit(TypeUpdateScores, ScoresPayload{TEvent: 1.5, ScoreA: 1}))

	for _, c := range []*Connection{a, b} {
		msgs := drain(c)
		require.Len(t, msgs, 1)
		assert.Equal(t, TypeUpdateScores, msgs[0].Type)

		var payload ScoresPayload
		require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
		assert.Equal(t, 1, payload.ScoreA)
	}
	assert.Empty(t, drain(outsider))
}

func TestHub_UnregisterLeavesChannels(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := detachedConnection()
	hub.Register(c)
	hub.Join(MatchChannel(1, 0, 0), c.ID())

	hub.Unregister(c.ID())

	assert.Equal(t, 0, hub.Members(MatchChannel(1, 0, 0)))
	assert.ErrorIs(t, hub.SendTo(c.ID(), Message{Type: TypePong}), ErrConnectionNotFound)
	assert.ErrorIs(t, c.Send(Message{Type: TypePong}), ErrConnectionClosed)
}

func TestConnection_SendQueueFull(t *testing.T) {
	c := detachedConnection()
	for i := 0; i < cap(c.sendCh); i++ {
		require.NoError(t, c.Send(Message{Type: TypePong}))
	}
	assert.ErrorIs(t, c.Send(Message{Type: TypePong}), ErrSendQueueFull)
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "room:3", RoomChannel(3))
	assert.Equal(t, "room:3:rank:1:slot:0", MatchChannel(3, 1, 0))
}

func TestPrecision(t *testing.T) {
	p := DefaultPrecision()

	assert.Equal(t, 123.5, p.Coord(123.456))
	assert.Equal(t, -0.1, p.Coord(-0.06))
	assert.Equal(t, 399.99, p.Speed(399.9876))
	assert.Equal(t, 1.235, p.Seconds(1234567*time.Microsecond))

	ts := time.Unix(1700000000, 123456789)
	assert.InDelta(t, 1700000000.123, p.Time(ts), 1e-6)
}
