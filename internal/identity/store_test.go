package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/model"
)

func TestStore_TokenRequiresLiveSession(t *testing.T) {
	s := NewStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	var authErr *apperr.AuthenticationError
	_, err := s.Token(context.Background())
	require.ErrorAs(t, err, &authErr)

	s.set(model.Credential{UserID: "u1", IDToken: "tok", ExpiresAt: now.Add(time.Minute)})
	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	now = now.Add(time.Minute)
	_, err = s.Token(context.Background())
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "session expired", authErr.Message)

	s.clear()
	_, err = s.Token(context.Background())
	assert.ErrorAs(t, err, &authErr)
}

func TestStore_SetPublishesUnknownRole(t *testing.T) {
	s := NewStore()
	s.set(model.Credential{UserID: "u1", DisplayName: "Ada", Email: "ada@example.com"})
	sess, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, model.Session{UserID: "u1", DisplayName: "Ada", Email: "ada@example.com", Role: model.RoleUnknown}, sess)
}

func TestStore_SetRoleIgnoresStaleVersion(t *testing.T) {
	s := NewStore()
	first := s.set(model.Credential{UserID: "u1"})
	second := s.set(model.Credential{UserID: "u2"})

	assert.False(t, s.setRole(first, model.RoleAdmin))
	sess, _ := s.Current()
	assert.Equal(t, model.RoleUnknown, sess.Role)

	assert.True(t, s.setRole(second, model.RoleClinician))
	sess, _ = s.Current()
	assert.Equal(t, model.RoleClinician, sess.Role)

	s.clear()
	assert.False(t, s.setRole(second, model.RoleAdmin))
}

func TestStore_SubscribeSeesLatest(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe()

	initial := <-ch
	assert.False(t, initial.SignedIn)

	s.set(model.Credential{UserID: "u1"})
	s.set(model.Credential{UserID: "u2"})
	latest := <-ch
	assert.True(t, latest.SignedIn)
	assert.Equal(t, "u2", latest.Session.UserID, "slow reader sees only the newest state")

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	// publishing after cancel must not panic
	s.clear()
}

func TestStore_ExpiredSessionIsSignedOut(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe()
	defer cancel()
	<-ch

	s.set(model.Credential{UserID: "u1", IDToken: "tok", ExpiresAt: time.Now().Add(-time.Second)})

	_, ok := s.Current()
	assert.False(t, ok, "expired credential must not report a session")
	var authErr *apperr.AuthenticationError
	_, err := s.Token(context.Background())
	require.ErrorAs(t, err, &authErr)

	require.Eventually(t, func() bool {
		select {
		case st := <-ch:
			return !st.SignedIn
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "subscribers hear the sign-out")
}

func TestStore_ExpiryTimerClearsSession(t *testing.T) {
	s := NewStore()
	s.set(model.Credential{UserID: "u1", IDToken: "tok", ExpiresAt: time.Now().Add(20 * time.Millisecond)})
	_, ok := s.Current()
	require.True(t, ok)

	require.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return !s.state.SignedIn
	}, time.Second, 5*time.Millisecond)
}

func TestStore_ExpireIgnoresReplacedSession(t *testing.T) {
	s := NewStore()
	first := s.set(model.Credential{UserID: "u1"})
	s.set(model.Credential{UserID: "u2"})

	assert.False(t, s.expire(first))
	sess, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "u2", sess.UserID)
}
