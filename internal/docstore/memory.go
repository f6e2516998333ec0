package docstore

import (
	"context"
	"sync"

	"github.com/agenthands/cogniscan/internal/model"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu     sync.RWMutex
	users  map[string]model.UserProfile
	models []model.ModelRecord
}

func NewMemory() *Memory {
	return &Memory{users: make(map[string]model.UserProfile)}
}

// SetRole assigns role to uid, creating a bare profile when needed.
func (m *Memory) SetRole(uid string, role model.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.users[uid]
	p.UserID = uid
	p.Role = role
	m.users[uid] = p
}

func (m *Memory) User(uid string) (model.UserProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.users[uid]
	return p, ok
}

func (m *Memory) UserRole(_ context.Context, uid string) (model.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.users[uid]
	if !ok {
		return model.RoleUnknown, ErrNotFound
	}
	return model.ParseRole(string(p.Role)), nil
}

func (m *Memory) EnsureUser(_ context.Context, profile model.UserProfile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[profile.UserID]; ok {
		return false, nil
	}
	m.users[profile.UserID] = profile
	return true, nil
}

func (m *Memory) LatestModel(_ context.Context) (model.ModelRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.models) == 0 {
		return model.ModelRecord{}, ErrNotFound
	}
	latest := m.models[0]
	for _, rec := range m.models[1:] {
		if !rec.Timestamp.Before(latest.Timestamp) {
			latest = rec
		}
	}
	return latest, nil
}

func (m *Memory) RecordModel(_ context.Context, rec model.ModelRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = append(m.models, rec)
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }
