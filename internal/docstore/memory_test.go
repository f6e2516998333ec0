package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cogniscan/internal/model"
)

// failingStore cannot read model records.
type failingStore struct{ Memory }

func (*failingStore) LatestModel(context.Context) (model.ModelRecord, error) {
	return model.ModelRecord{}, errors.New("unavailable")
}

func TestMemory_EnsureUserKeepsExisting(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.EnsureUser(ctx, model.UserProfile{UserID: "u1", Name: "Ada"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.EnsureUser(ctx, model.UserProfile{UserID: "u1", Name: "Someone Else"})
	require.NoError(t, err)
	assert.False(t, created)

	p, ok := m.User("u1")
	require.True(t, ok)
	assert.Equal(t, "Ada", p.Name)
}

func TestMemory_UserRole(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.UserRole(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	m.SetRole("u1", model.RoleAdmin)
	role, err := m.UserRole(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	m.SetRole("u2", "superuser")
	role, err = m.UserRole(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUnknown, role)
}

func TestBestModel(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	assert.Equal(t, model.DefaultModelName, BestModel(ctx, m))
	assert.Equal(t, model.DefaultModelName, BestModel(ctx, nil))
	assert.Equal(t, model.DefaultModelName, BestModel(ctx, &failingStore{}))

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.RecordModel(ctx, model.ModelRecord{BestModel: "svm", Timestamp: base.Add(time.Hour)}))
	require.NoError(t, m.RecordModel(ctx, model.ModelRecord{BestModel: "naiveBayes", Timestamp: base}))
	assert.Equal(t, "svm", BestModel(ctx, m))

	require.NoError(t, m.RecordModel(ctx, model.ModelRecord{BestModel: "", Timestamp: base.Add(2 * time.Hour)}))
	assert.Equal(t, model.DefaultModelName, BestModel(ctx, m))
}
