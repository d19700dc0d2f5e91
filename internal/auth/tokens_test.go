package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tastymeals/internal/models"
)

func testUser(role models.Role) *models.User {
	return &models.User{
		ID:       uuid.New(),
		Username: "jane",
		Role:     role,
	}
}

func TestIssueAndVerifyPair(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Minute, time.Hour)
	user := testUser(models.RoleCafeAdmin)

	pair, err := manager.IssuePair(user)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	principal, err := manager.VerifyAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "jane", principal.Username)
	assert.Equal(t, models.RoleCafeAdmin, principal.Role)
	assert.True(t, principal.IsAdmin())

	userID, err := manager.VerifyRefresh(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestVerifyAccess_RejectsRefreshToken(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Minute, time.Hour)
	pair, err := manager.IssuePair(testUser(models.RoleCustomer))
	require.NoError(t, err)

	_, err = manager.VerifyAccess(pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = manager.VerifyRefresh(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccess_Expired(t *testing.T) {
	manager := NewTokenManager("test-secret", -time.Minute, time.Hour)
	pair, err := manager.IssuePair(testUser(models.RoleCustomer))
	require.NoError(t, err)

	_, err = manager.VerifyAccess(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccess_WrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Minute, time.Hour)
	verifier := NewTokenManager("secret-b", time.Minute, time.Hour)

	pair, err := issuer.IssuePair(testUser(models.RoleCustomer))
	require.NoError(t, err)

	_, err = verifier.VerifyAccess(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccess_Garbage(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Minute, time.Hour)

	_, err := manager.VerifyAccess("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
