package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_RoundTrip(t *testing.T) {
	sm, err := NewSessionManager("test-secret-32-characters-long!", time.Hour)
	require.NoError(t, err)

	sessionID, signed, err := sm.NewSession()
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)

	parsed, err := sm.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, sessionID, parsed)
}

func TestSessionManager_RejectsForeignKey(t *testing.T) {
	issuer, err := NewSessionManager("issuer-secret-32-characters-long", time.Hour)
	require.NoError(t, err)
	verifier, err := NewSessionManager("another-secret-32-characters-lon", time.Hour)
	require.NoError(t, err)

	_, signed, err := issuer.NewSession()
	require.NoError(t, err)

	_, err = verifier.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionManager_RejectsExpired(t *testing.T) {
	sm, err := NewSessionManager("test-secret-32-characters-long!", time.Minute)
	require.NoError(t, err)

	now := time.Now()
	sm.now = func() time.Time { return now }
	_, signed, err := sm.NewSession()
	require.NoError(t, err)

	sm.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = sm.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionManager_RejectsGarbage(t *testing.T) {
	sm, err := NewSessionManager("test-secret-32-characters-long!", time.Hour)
	require.NoError(t, err)

	_, err = sm.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionFromContext(t *testing.T) {
	assert.Equal(t, "", SessionFromContext(context.Background()))

	ctx := WithSession(context.Background(), "abc")
	assert.Equal(t, "abc", SessionFromContext(ctx))
}
