// Package identity holds the signed-in session. Store is the single-writer
// observable read by everything else; only Provider writes to it.
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/model"
)

// State is one published value of the store. Session is meaningful only when
// SignedIn is true.
type State struct {
	SignedIn bool
	Session  model.Session
}

type Store struct {
	mu      sync.RWMutex
	state   State
	cred    model.Credential
	version uint64
	subs    map[int]chan State
	nextSub int
	now     func() time.Time
	expiry  *time.Timer
}

func NewStore() *Store {
	return &Store{subs: make(map[int]chan State), now: time.Now}
}

// Current reports the published session. A session past its expiry counts as
// signed out even before the expiry timer has cleared it.
func (s *Store) Current() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.SignedIn || s.expiredLocked() {
		return model.Session{}, false
	}
	return s.state.Session, true
}

// Subscribe returns a channel that receives the latest state on every change,
// starting with the current one. Slow readers only see the most recent value.
// cancel closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 1)
	ch <- s.state
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Token returns the bearer credential of the current session.
func (s *Store) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.SignedIn || s.cred.IDToken == "" {
		return "", apperr.Authentication("no signed-in user", nil)
	}
	if s.expiredLocked() {
		return "", apperr.Authentication("session expired", nil)
	}
	return s.cred.IDToken, nil
}

func (s *Store) expiredLocked() bool {
	return !s.cred.ExpiresAt.IsZero() && !s.now().Before(s.cred.ExpiresAt)
}

// set publishes a new session with the least privileged role and returns its
// version. A credential with an expiry is cleared again once it lapses.
func (s *Store) set(cred model.Credential) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.stopExpiry()
	s.cred = cred
	if !cred.ExpiresAt.IsZero() {
		version := s.version
		s.expiry = time.AfterFunc(cred.ExpiresAt.Sub(s.now()), func() { s.expire(version) })
	}
	s.state = State{SignedIn: true, Session: model.Session{
		UserID:      cred.UserID,
		DisplayName: cred.DisplayName,
		Email:       cred.Email,
		Role:        model.RoleUnknown,
	}}
	s.broadcast()
	return s.version
}

// setRole applies role only if the session has not changed since version.
func (s *Store) setRole(version uint64, role model.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version || !s.state.SignedIn {
		return false
	}
	s.state.Session.Role = role
	s.broadcast()
	return true
}

func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// expire signs out the session published as version, unless it was replaced.
func (s *Store) expire(version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version || !s.state.SignedIn {
		return false
	}
	s.clearLocked()
	return true
}

func (s *Store) clearLocked() {
	s.version++
	s.stopExpiry()
	s.cred = model.Credential{}
	s.state = State{}
	s.broadcast()
}

func (s *Store) stopExpiry() {
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
}

// broadcast must be called with mu held.
func (s *Store) broadcast() {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
}
