package match

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/pong-tournament/internal/engine"
	httperrors "github.com/gokatarajesh/pong-tournament/pkg/http/errors"
	ws "github.com/gokatarajesh/pong-tournament/pkg/http/ws"
)

// SessionLookup finds the session currently bound to a bracket slot.
type SessionLookup interface {
	LookupSession(roomID int64, rank, slot int) (*Session, bool)
}

// IdentityResolver maps a connection token to a participant id.
type IdentityResolver interface {
	ResolveParticipant(token string) (string, error)
}

type client struct {
	conn        *ws.Connection
	session     *Session
	side        engine.Player
	participant string
}

type inboundHandler func(c *client, payload json.RawMessage) error

// Handler serves the per-match websocket of the two participants of a slot.
type Handler struct {
	sessions   SessionLookup
	identities IdentityResolver
	hub        *ws.Hub
	logger     zerolog.Logger
	routes     map[string]inboundHandler
}

// NewHandler creates a match WebSocket handler.
func NewHandler(sessions SessionLookup, identities IdentityResolver, hub *ws.Hub, logger zerolog.Logger) *Handler {
	h := &Handler{
		sessions:   sessions,
		identities: identities,
		hub:        hub,
		logger:     logger.With().Str("component", "match_ws").Logger(),
	}
	h.routes = map[string]inboundHandler{
		ws.TypeStartAck:      h.handleStartAck,
		ws.TypeEndedAck:      h.handleEndedAck,
		ws.TypeKeyboardInput: h.handleKeyboardInput,
		ws.TypePing:          h.handlePing,
	}
	return h
}

// HandleWebSocket authenticates the participant, binds the connection to the
// slot's session and pumps messages until the peer disconnects.
// Route: /ws/rooms/{roomID}/matches/{rank}/{slot}?token=...
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID, rank, slot, err := slotFromRequest(r)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, err.Error())
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

	session, ok := h.sessions.LookupSession(roomID, rank, slot)
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeMatchNotFound, "No match is running for this slot")
		return
	}
	side := session.SideOf(participant)
	if side == engine.PlayerNone {
		httperrors.RespondForbidden(w, httperrors.ErrCodeNotParticipant, "Not a participant of this match")
		return
	}

	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{
		conn:        ws.NewConnection(conn, h.logger),
		session:     session,
		side:        side,
		participant: participant,
	}
	channel := ws.MatchChannel(roomID, rank, slot)
	h.hub.Register(c.conn)
	h.hub.Join(channel, c.conn.ID())
	h.logger.Info().
		Int64("room_id", roomID).
		Int("rank", rank).
		Int("slot", slot).
		Str("participant", participant).
		Str("side", side.String()).
		Msg("participant connected")

	go c.conn.WritePump()
	c.conn.ReadPump(func(msg ws.Message) error {
		return h.dispatch(c, msg)
	})

	h.hub.Leave(channel, c.conn.ID())
	h.hub.Unregister(c.conn.ID())
}

func (h *Handler) dispatch(c *client, msg ws.Message) error {
	handle, ok := h.routes[msg.Type]
	if !ok {
		return h.sendError(c, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
	return handle(c, msg.Payload)
}

func (h *Handler) handleStartAck(c *client, _ json.RawMessage) error {
	c.session.Deliver(Inbound{Player: c.side, Kind: InboundStartAck})
	return nil
}

func (h *Handler) handleEndedAck(c *client, _ json.RawMessage) error {
	c.session.Deliver(Inbound{Player: c.side, Kind: InboundEndedAck})
	return nil
}

func (h *Handler) handleKeyboardInput(c *client, payload json.RawMessage) error {
	var req ws.KeyboardInputPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(c, httperrors.ErrCodeInvalidPayload, "Invalid keyboard_input payload")
	}
	key, err := engine.ParseKey(req.Key)
	if err != nil {
		return h.sendError(c, httperrors.ErrCodeInvalidPayload, err.Error())
	}
	action, err := engine.ParseAction(req.Action)
	if err != nil {
		return h.sendError(c, httperrors.ErrCodeInvalidPayload, err.Error())
	}

	c.session.Deliver(Inbound{
		Player: c.side,
		Kind:   InboundKey,
		Key:    engine.KeyInput{Key: key, Action: action},
	})
	return nil
}

func (h *Handler) handlePing(c *client, _ json.RawMessage) error {
	return h.hub.SendTo(c.conn.ID(), ws.Message{Type: ws.TypePong})
}

func (h *Handler) sendError(c *client, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	return h.hub.SendTo(c.conn.ID(), msg)
}

func slotFromRequest(r *http.Request) (roomID int64, rank, slot int, err error) {
	roomID, err = strconv.ParseInt(r.PathValue("roomID"), 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid room id %q", r.PathValue("roomID"))
	}
	rank, err = strconv.Atoi(r.PathValue("rank"))
	if err != nil || rank < 0 {
		return 0, 0, 0, fmt.Errorf("invalid rank %q", r.PathValue("rank"))
	}
	slot, err = strconv.Atoi(r.PathValue("slot"))
	if err != nil || slot < 0 {
		return 0, 0, 0, fmt.Errorf("invalid slot %q", r.PathValue("slot"))
	}
	return roomID, rank, slot, nil
}
