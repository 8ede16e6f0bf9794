package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-chars-long!!"

func TestService_GenerateAndValidateToken(t *testing.T) {
	tests := []struct {
		name        string
		issuer      func() Service
		validator   Service
		ttl         time.Duration
		expectedErr error
	}{
		{
			name:      "success",
			issuer:    func() Service { return NewService(testSecret, "tenpin") },
			validator: NewService(testSecret, "tenpin"),
			ttl:       time.Hour,
		},
		{
			name:        "expired token",
			issuer:      func() Service { return NewService(testSecret, "tenpin") },
			validator:   NewService(testSecret, "tenpin"),
			ttl:         -time.Hour,
			expectedErr: ErrExpiredToken,
		},
		{
			name:        "wrong secret",
			issuer:      func() Service { return NewService("another-secret-that-is-long-enough!!", "tenpin") },
			validator:   NewService(testSecret, "tenpin"),
			ttl:         time.Hour,
			expectedErr: ErrInvalidSignature,
		},
		{
			name:        "wrong issuer",
			issuer:      func() Service { return NewService(testSecret, "someone-else") },
			validator:   NewService(testSecret, "tenpin"),
			ttl:         time.Hour,
			expectedErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.issuer().GenerateToken("lane-desk-3", RoleScorer, tt.ttl)
			require.NoError(t, err)

			claims, err := tt.validator.ValidateToken(token)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "lane-desk-3", claims.Subject)
			assert.Equal(t, string(RoleScorer), claims.Role)
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestService_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: string(RoleAdmin)})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := NewService(testSecret, "").ValidateToken(signed)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.True(t, errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrInvalidSignature))
}

func TestService_Garbage(t *testing.T) {
	_, err := NewService(testSecret, "").ValidateToken("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRole_CanWrite(t *testing.T) {
	assert.False(t, RoleViewer.CanWrite())
	assert.True(t, RoleScorer.CanWrite())
	assert.True(t, RoleAdmin.CanWrite())
	assert.False(t, Role("").CanWrite())
}
