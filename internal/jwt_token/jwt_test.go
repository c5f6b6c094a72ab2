package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorwatch/internal/vendors/models"
	dErrors "vendorwatch/pkg/domain-errors"
)

func TestGenerateOperatorToken(t *testing.T) {
	svc := NewJWTService("test-signing-key")

	token, err := svc.GenerateOperatorToken("ops@vendorwatch.example", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@vendorwatch.example", claims.Subject)
	assert.True(t, claims.IsAdmin())
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateToken(t *testing.T) {
	svc := NewJWTService("test-signing-key")

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("invalid-token-string")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		other := NewJWTService("other-key")
		token, err := other.GenerateOperatorToken("ops", models.RoleAdmin, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("reports expiry", func(t *testing.T) {
		issuer := NewJWTService("test-signing-key")
		issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := issuer.GenerateOperatorToken("ops", models.RoleAdmin, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("rejects a foreign audience", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Role: string(models.RoleAdmin),
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    Issuer,
				Audience:  []string{"someone-else"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte("test-signing-key"))
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.Error(t, err)
	})
}
