package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	state, nonce, err := SignState("state-secret", 42, "instagram", "facebook", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, nonce)

	claims, err := ValidateState("state-secret", state)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.WorkspaceID)
	assert.Equal(t, "instagram", claims.Platform)
	assert.Equal(t, "facebook", claims.Method)
	assert.Equal(t, nonce, claims.ID)
}

func TestStateRejectsWrongSecret(t *testing.T) {
	state, _, err := SignState("state-secret", 1, "tiktok", "", time.Minute)
	require.NoError(t, err)

	_, err = ValidateState("other-secret", state)
	assert.Error(t, err)
}

func TestStateRejectsExpired(t *testing.T) {
	state, _, err := SignState("state-secret", 1, "tiktok", "", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateState("state-secret", state)
	assert.Error(t, err)
}

func TestSessionToken(t *testing.T) {
	token, err := GenerateToken("session-secret", "17", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("session-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "17", claims.UserID)
}
