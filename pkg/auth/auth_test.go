package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateAccessToken(userID, "alice", testSecret, time.Minute)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	_, err = ValidateAccessToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpired(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "bob", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestCallLinkCredential(t *testing.T) {
	accountID := uuid.New()

	token, expiresAt, err := IssueCallLinkCredential(accountID, testSecret, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	got, err := ValidateCallLinkCredential(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, accountID, got)
}

func TestCallLinkCredentialRejectsAccessToken(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "carol", testSecret, time.Minute)
	require.NoError(t, err)

	_, err = ValidateCallLinkCredential(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
