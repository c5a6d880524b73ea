package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GenerateValidate(t *testing.T) {
	m := NewManager(TokenConfig{Secret: []byte("s3cret"), TTL: time.Minute, Issuer: "accounts"})

	token, err := m.Generate("p-1", "Ada")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "p-1", claims.ParticipantID)
	assert.Equal(t, "Ada", claims.DisplayName)
	assert.Equal(t, "accounts", claims.Issuer)
}

func TestManager_Rejects(t *testing.T) {
	m := NewManager(TokenConfig{Secret: []byte("s3cret"), Issuer: "accounts"})

	t.Run("expired", func(t *testing.T) {
		expired := NewManager(TokenConfig{Secret: []byte("s3cret"), TTL: -time.Minute, Issuer: "accounts"})
		token, err := expired.Generate("p-1", "")
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		other := NewManager(TokenConfig{Secret: []byte("s3cret"), Issuer: "elsewhere"})
		token, err := other.Generate("p-1", "")
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing participant", func(t *testing.T) {
		token, err := m.Generate("", "")
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			ParticipantID:    "p-1",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "accounts"},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Validate(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
