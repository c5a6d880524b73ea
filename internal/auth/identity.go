package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/pong-tournament/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/pong-tournament/pkg/http/errors"
)

type ctxKey struct{}

// Resolver turns identity tokens into participant ids.
type Resolver struct {
	tokens *jwt.Manager
	logger zerolog.Logger
}

func NewResolver(tokens *jwt.Manager, logger zerolog.Logger) *Resolver {
	return &Resolver{
		tokens: tokens,
		logger: logger.With().Str("component", "identity").Logger(),
	}
}

// ResolveParticipant validates token and returns the participant it names.
func (r *Resolver) ResolveParticipant(token string) (string, error) {
	claims, err := r.tokens.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.ParticipantID, nil
}

// Middleware requires a bearer token and injects the participant id into the
// request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		authHeader := req.Header.Get("Authorization")
		if authHeader == "" {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Authentication required")
			return
		}

		// Parse "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid authorization header")
			return
		}

		claims, err := r.tokens.Validate(parts[1])
		if err != nil {
			r.logger.Warn().Err(err).Msg("token validation failed")
			code := httperrors.ErrCodeInvalidToken
			if err == jwt.ErrExpiredToken {
				code = httperrors.ErrCodeTokenExpired
			}
			httperrors.RespondUnauthorized(w, code, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, req.WithContext(WithParticipant(req.Context(), claims.ParticipantID)))
	})
}

// WithParticipant stores the caller's participant id in ctx.
func WithParticipant(ctx context.Context, participantID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, participantID)
}

// ParticipantFromContext returns the participant id set by Middleware.
func ParticipantFromContext(ctx context.Context) (string, bool) {
	pid, ok := ctx.Value(ctxKey{}).(string)
	return pid, ok && pid != ""
}
