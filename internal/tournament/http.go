package tournament

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/pong-tournament/internal/auth"
	httperrors "github.com/gokatarajesh/pong-tournament/pkg/http/errors"
)

// Starter launches tournaments.
type Starter interface {
	Start(ctx context.Context, roomID int64, requester ParticipantID) (uuid.UUID, error)
}

// HTTPHandlers provides REST endpoints for tournament operations.
type HTTPHandlers struct {
	starter Starter
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for tournament endpoints.
func NewHTTPHandlers(starter Starter, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		starter: starter,
		logger:  logger.With().Str("component", "tournament_http").Logger(),
	}
}

// StartTournament handles POST /v1/rooms/{roomID}/start
func (h *HTTPHandlers) StartTournament(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requester, ok := auth.ParticipantFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Authentication required")
		return
	}

	roomID, err := strconv.ParseInt(r.PathValue("roomID"), 10, 64)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid room id")
		return
	}

	runID, err := h.starter.Start(r.Context(), roomID, ParticipantID(requester))
	switch {
	case err == nil:
	case errors.Is(err, ErrRoomNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeRoomNotFound, "Room not found")
		return
	case errors.Is(err, ErrNotHost):
		httperrors.RespondForbidden(w, httperrors.ErrCodeNotHost, "Only the room host can start the tournament")
		return
	case errors.Is(err, ErrTournamentRunning):
		httperrors.RespondConflict(w, httperrors.ErrCodeTournamentRunning, "Tournament already running")
		return
	default:
		h.logger.Error().Err(err).Int64("room_id", roomID).Msg("failed to start tournament")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeRoomStartFailed, "Failed to start tournament")
		return
	}

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"room_id": roomID,
		"run_id":  runID.String(),
		"status":  "started",
	})
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
