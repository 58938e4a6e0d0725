package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberguard/internal/config"
	"cyberguard/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")}
	store, err := NewStore(context.Background(), cfg, logger.New(logger.Config{Level: "error", Format: "json"}))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndVerifyUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice@example.com", "Alice Adams", "correct horse battery")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)

	verified, err := store.VerifyUser(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)
	assert.Equal(t, "Alice Adams", verified.FullName)
}

func TestCreateUserDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, "bob@example.com", "Bob", "password123")
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, "bob@example.com", "Bobby", "different456")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestVerifyUserWrongPassword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, "carol@example.com", "Carol", "rightpassword")
	require.NoError(t, err)

	_, err = store.VerifyUser(ctx, "carol@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.VerifyUser(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordHashingSalted(t *testing.T) {
	// Identical passwords with different salts must hash differently
	h1 := hashPassword("hunter2", "salt-one")
	h2 := hashPassword("hunter2", "salt-two")
	assert.NotEqual(t, h1, h2)

	// Same inputs must be deterministic
	assert.Equal(t, h1, hashPassword("hunter2", "salt-one"))
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "dave@example.com", "Dave", "password123")
	require.NoError(t, err)

	sess, err := store.CreateSession(ctx, user.ID, time.Hour)
	require.NoError(t, err)
	assert.Len(t, sess.Token, 64, "token is 32 random bytes hex-encoded")
	assert.Equal(t, "dave@example.com", sess.Email)

	verified, err := store.VerifySession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.UserID)
	assert.Equal(t, "Dave", verified.FullName)

	require.NoError(t, store.DeleteSession(ctx, sess.Token))

	_, err = store.VerifySession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestVerifySessionExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "erin@example.com", "Erin", "password123")
	require.NoError(t, err)

	sess, err := store.CreateSession(ctx, user.ID, -time.Minute)
	require.NoError(t, err)

	_, err = store.VerifySession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// The expired row is deleted on sight
	n, err := store.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVerifySessionUnknownToken(t *testing.T) {
	store := newTestStore(t)

	_, err := store.VerifySession(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCleanupExpiredSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "frank@example.com", "Frank", "password123")
	require.NoError(t, err)

	_, err = store.CreateSession(ctx, user.ID, -time.Hour)
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, user.ID, -time.Hour)
	require.NoError(t, err)
	live, err := store.CreateSession(ctx, user.ID, time.Hour)
	require.NoError(t, err)

	n, err := store.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = store.VerifySession(ctx, live.Token)
	assert.NoError(t, err)
}

func TestCreateSessionDefaultTTL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "grace@example.com", "Grace", "password123")
	require.NoError(t, err)

	sess, err := store.CreateSession(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), sess.ExpiresAt, time.Minute)
}
