package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/model"
)

const memoryTokenTTL = time.Hour

type memoryAccount struct {
	uid  string
	name string
	hash []byte
}

// MemoryAuth is a local account list for development without the identity
// platform. Tokens are random and only meaningful to a backend that does not
// verify them.
type MemoryAuth struct {
	mu       sync.Mutex
	accounts map[string]memoryAccount
	now      func() time.Time
}

func NewMemoryAuth() *MemoryAuth {
	return &MemoryAuth{accounts: make(map[string]memoryAccount), now: time.Now}
}

func (m *MemoryAuth) SignUp(_ context.Context, name, email, password string) (model.Credential, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Credential{}, apperr.Authentication("could not create account", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[key]; ok {
		return model.Credential{}, apperr.Authentication("An account with this email already exists.", nil)
	}
	acct := memoryAccount{uid: uuid.NewString(), name: name, hash: hash}
	m.accounts[key] = acct
	return m.issue(acct, key), nil
}

func (m *MemoryAuth) SignIn(_ context.Context, email, password string) (model.Credential, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	acct, ok := m.accounts[key]
	m.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return model.Credential{}, apperr.Authentication("Invalid email or password.", nil)
	}
	return m.issue(acct, key), nil
}

func (m *MemoryAuth) SignInWithGoogle(context.Context, string) (model.Credential, error) {
	return model.Credential{}, apperr.Authentication("Google sign-in is not available.", nil)
}

func (m *MemoryAuth) issue(acct memoryAccount, email string) model.Credential {
	return model.Credential{
		UserID:      acct.uid,
		DisplayName: acct.name,
		Email:       email,
		IDToken:     uuid.NewString(),
		ExpiresAt:   m.now().Add(memoryTokenTTL),
	}
}
