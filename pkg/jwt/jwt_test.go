package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	userID := uuid.New()
	groupID := uuid.New()

	token, err := service.GenerateToken(userID, "alice@example.com", "Alice", "MEMBER", &groupID)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "MEMBER", claims.Role)
	require.NotNil(t, claims.GroupID)
	assert.Equal(t, groupID, *claims.GroupID)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	issuer := NewService("secret-a", time.Hour)
	verifier := NewService("secret-b", time.Hour)

	token, err := issuer.GenerateToken(uuid.New(), "a@b.com", "A", "MEMBER", nil)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_RejectsExpiredToken(t *testing.T) {
	service := NewService("test-secret", -time.Minute)

	token, err := service.GenerateToken(uuid.New(), "a@b.com", "A", "MEMBER", nil)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	service := NewService("test-secret", time.Hour)
	_, err := service.ValidateToken("not.a.token")
	assert.Error(t, err)
}
