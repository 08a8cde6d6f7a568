package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t *testing.T) *TokenServiceImpl {
	t.Helper()
	svc, err := NewTokenService(15*time.Minute, "test-issuer", "test-audience", testSecret)
	require.NoError(t, err)
	return svc.(*TokenServiceImpl)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		ttl         time.Duration
		secretKey   string
		expectError bool
	}{
		{name: "valid configuration", ttl: time.Hour, secretKey: testSecret},
		{name: "missing secret key", ttl: time.Hour, secretKey: "", expectError: true},
		{name: "zero ttl", ttl: 0, secretKey: testSecret, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewTokenService(tt.ttl, "issuer", "audience", tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ttl, svc.TTL())
		})
	}
}

func TestGenerateAndValidateAdminToken(t *testing.T) {
	svc := createTestTokenService(t)

	token, expiresAt, err := svc.GenerateAdminToken("session-1", "operator")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "operator", claims.Username)
	assert.NotEmpty(t, claims.TokenID)
}

func TestGenerateAdminToken_RequiresSession(t *testing.T) {
	svc := createTestTokenService(t)
	_, _, err := svc.GenerateAdminToken("", "operator")
	assert.Error(t, err)
}

func TestValidateAdminToken_Failures(t *testing.T) {
	svc := createTestTokenService(t)
	token, _, err := svc.GenerateAdminToken("session-1", "operator")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(time.Hour) }
		defer func() { svc.now = time.Now }()

		_, err := svc.ValidateAdminToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenService(15*time.Minute, "test-issuer", "test-audience", "another-secret-key-that-is-32-chars!")
		require.NoError(t, err)
		_, err = other.ValidateAdminToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other, err := NewTokenService(15*time.Minute, "test-issuer", "other-audience", testSecret)
		require.NoError(t, err)
		_, err = other.ValidateAdminToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("unsigned token", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sid": "x"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateAdminToken(unsigned)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAdminToken("not-a-token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
