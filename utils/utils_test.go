package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(7, "reader@example.com", "user", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "reader@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
}

func TestParseTokenRejects(t *testing.T) {
	valid, err := GenerateToken(7, "a@b.c", "user", testSecret, time.Hour)
	require.NoError(t, err)
	noExpiry, err := GenerateToken(7, "a@b.c", "user", testSecret, 0)
	require.NoError(t, err)
	noUser, err := GenerateToken(0, "a@b.c", "user", testSecret, time.Hour)
	require.NoError(t, err)

	expiredClaims := Claims{UserID: 7, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]struct {
		token  string
		secret string
	}{
		"wrong secret": {token: valid, secret: "other"},
		"garbage":      {token: "not-a-token", secret: testSecret},
		"expired":      {token: expired, secret: testSecret},
		"no user id":   {token: noUser, secret: testSecret},
		"no secret":    {token: valid, secret: ""},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tc.token, tc.secret)
			assert.Error(t, err)
		})
	}

	// A non-positive ttl issues a token without expiry.
	_, err = ParseToken(noExpiry, testSecret)
	assert.NoError(t, err)
}

func TestNewLoggerLevels(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("nonsense")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}
