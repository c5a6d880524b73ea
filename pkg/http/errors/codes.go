package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeTokenExpired = "token_expired"

	// Validation errors
	ErrCodeInvalidRequest = "invalid_request"

	// Resource errors
	ErrCodeNotFound = "not_found"
	ErrCodeConflict = "conflict"

	// Room/Tournament errors
	ErrCodeRoomNotFound      = "room_not_found"
	ErrCodeNotHost           = "not_host"
	ErrCodeTournamentRunning = "tournament_running"
	ErrCodeRoomStartFailed   = "room_start_failed"
	ErrCodeMatchNotFound     = "match_not_found"
	ErrCodeNotParticipant    = "not_participant"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)
