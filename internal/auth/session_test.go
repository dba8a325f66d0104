package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T, revoker TokenRevoker) *Sessions {
	t.Helper()
	s, err := NewSessions("test-secret", time.Hour, revoker)
	require.NoError(t, err)
	return s
}

func TestNewSessionsRequiresSecret(t *testing.T) {
	_, err := NewSessions(" ", time.Hour, nil)
	assert.Error(t, err)
	_, err = NewSessions("x", 0, nil)
	assert.Error(t, err)
}

func TestSessionsIssueVerify(t *testing.T) {
	s := newTestSessions(t, nil)
	token, err := s.Issue("user-1")
	require.NoError(t, err)

	userID, err := s.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestSessionsRejectForeignSignature(t *testing.T) {
	other, err := NewSessions("other-secret", time.Hour, nil)
	require.NoError(t, err)
	token, err := other.Issue("user-1")
	require.NoError(t, err)

	_, err = newTestSessions(t, nil).Verify(context.Background(), token)
	assert.True(t, errors.Is(err, ErrInvalidSession))
}

func TestSessionsRejectExpired(t *testing.T) {
	s, err := NewSessions("test-secret", time.Millisecond, nil)
	require.NoError(t, err)
	token, err := s.Issue("user-1")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = s.Verify(context.Background(), token)
	assert.True(t, errors.Is(err, ErrInvalidSession))
}

func TestSessionsRevokeMemory(t *testing.T) {
	s := newTestSessions(t, NewMemoryRevoker())
	token, err := s.Issue("user-1")
	require.NoError(t, err)

	require.NoError(t, s.Revoke(context.Background(), token))
	_, err = s.Verify(context.Background(), token)
	assert.True(t, errors.Is(err, ErrRevokedSession))

	err = s.Revoke(context.Background(), token)
	assert.True(t, errors.Is(err, ErrRevokedSession), "revoking twice is rejected")
}

func TestSessionsRevokeRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := newTestSessions(t, NewRedisRevoker(client))

	token, err := s.Issue("user-2")
	require.NoError(t, err)
	other, err := s.Issue("user-2")
	require.NoError(t, err)

	require.NoError(t, s.Revoke(context.Background(), token))
	_, err = s.Verify(context.Background(), token)
	assert.True(t, errors.Is(err, ErrRevokedSession))

	userID, err := s.Verify(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)

	mr.FastForward(2 * time.Hour)
	revoked, err := NewRedisRevoker(client).IsRevoked(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevokerExpires(t *testing.T) {
	r := NewMemoryRevoker()
	require.NoError(t, r.Revoke(context.Background(), "jti", 10*time.Millisecond))
	revoked, err := r.IsRevoked(context.Background(), "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	time.Sleep(20 * time.Millisecond)
	revoked, err = r.IsRevoked(context.Background(), "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}
