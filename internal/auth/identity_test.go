package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/pong-tournament/internal/auth/jwt"
)

func newResolver(secret string, ttl time.Duration) (*Resolver, *jwt.Manager) {
	tokens := jwt.NewManager(jwt.TokenConfig{Secret: []byte(secret), TTL: ttl})
	return NewResolver(tokens, zerolog.Nop()), tokens
}

func TestResolveParticipant(t *testing.T) {
	resolver, tokens := newResolver("secret", time.Hour)

	token, err := tokens.Generate("player-42", "Ada")
	require.NoError(t, err)

	pid, err := resolver.ResolveParticipant(token)
	require.NoError(t, err)
	assert.Equal(t, "player-42", pid)

	other, _ := newResolver("other-secret", time.Hour)
	_, err = other.ResolveParticipant(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	_, err = resolver.ResolveParticipant("garbage")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestResolveParticipant_Expired(t *testing.T) {
	resolver, tokens := newResolver("secret", -time.Minute)

	token, err := tokens.Generate("player-42", "")
	require.NoError(t, err)

	_, err = resolver.ResolveParticipant(token)
	assert.ErrorIs(t, err, jwt.ErrExpiredToken)
}

func TestMiddleware(t *testing.T) {
	resolver, tokens := newResolver("secret", time.Hour)
	token, err := tokens.Generate("host-1", "")
	require.NoError(t, err)

	var seen string
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ParticipantFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/rooms/1/start", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, "host-1", seen)
}
