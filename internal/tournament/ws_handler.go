package tournament

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/pong-tournament/internal/match"
	httperrors "github.com/gokatarajesh/pong-tournament/pkg/http/errors"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

// RoomSocketHandler serves the room channel: config, bracket updates and
// destroyed events.
type RoomSocketHandler struct {
	manager    *Manager
	identities match.IdentityResolver
	hub        *ws.Hub
	logger     zerolog.Logger
}

func NewRoomSocketHandler(manager *Manager, identities match.IdentityResolver, hub *ws.Hub, logger zerolog.Logger) *RoomSocketHandler {
	return &RoomSocketHandler{
		manager:    manager,
		identities: identities,
		hub:        hub,
		logger:     logger.With().Str("component", "room_ws").Logger(),
	}
}

// HandleWebSocket handles /ws/rooms/{roomID}?token=...
func (h *RoomSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(r.PathValue("roomID"), 10, 64)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid room id")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}
	participant, err := h.identities.ResolveParticipant(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	if err := h.authorize(r.Context(), roomID, ParticipantID(participant)); err != nil {
		h.logger.Warn().Err(err).Int64("room_id", roomID).Str("participant", participant).Msg("room socket refused")
		httperrors.RespondForbidden(w, httperrors.ErrCodeNotParticipant, "Not a participant of this room")
		return
	}

	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	wsConn := ws.NewConnection(conn, h.logger)
	channel := ws.RoomChannel(roomID)
	h.hub.Register(wsConn)
	h.hub.Join(channel, wsConn.ID())

	go wsConn.WritePump()

	// late joiners catch up on the running tournament
	if h.manager.Running(roomID) {
		h.send(wsConn, ws.TypeConfig, match.ConfigPayload(h.manager.opts.Precision, h.manager.opts.Geometry, time.Now()))
	}
	if snap, ok := h.manager.Snapshot(r.Context(), roomID); ok {
		h.send(wsConn, ws.TypeUpdateTournament, snap)
	}

	wsConn.ReadPump(func(msg ws.Message) error {
		if msg.Type == ws.TypePing {
			return h.hub.SendTo(wsConn.ID(), ws.Message{Type: ws.TypePong})
		}
		errMsg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{
			Code:    httperrors.ErrCodeUnknownMessageType,
			Message: fmt.Sprintf("Unknown message type: %s", msg.Type),
		})
		if err != nil {
			return err
		}
		return h.hub.SendTo(wsConn.ID(), errMsg)
	})

	h.hub.Leave(channel, wsConn.ID())
	h.hub.Unregister(wsConn.ID())
}

func (h *RoomSocketHandler) send(conn *ws.Connection, event string, payload any) {
	msg, err := ws.NewMessage(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event).Msg("failed to encode room event")
		return
	}
	if err := h.hub.SendTo(conn.ID(), msg); err != nil {
		h.logger.Warn().Err(err).Str("type", event).Msg("failed to send room event")
	}
}

func (h *RoomSocketHandler) authorize(ctx context.Context, roomID int64, participant ParticipantID) error {
	members, err := h.manager.store.GetBracketParticipants(ctx, roomID)
	if err != nil {
		return err
	}
	if !slices.Contains(members, participant) {
		return fmt.Errorf("participant %s not in room %d", participant, roomID)
	}
	return nil
}
