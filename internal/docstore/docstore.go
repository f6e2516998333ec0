// Package docstore keeps the two documents the application owns: the user
// profile (which carries the role) and the trained-model record that selects the
// model used for inference.
package docstore

import (
	"context"
	"errors"

	"github.com/agenthands/cogniscan/internal/model"
)

var ErrNotFound = errors.New("docstore: document not found")

type Store interface {
	// UserRole returns the stored role for uid, or ErrNotFound.
	UserRole(ctx context.Context, uid string) (model.Role, error)
	// EnsureUser creates the profile unless one exists and reports whether it
	// did. An existing profile is left untouched.
	EnsureUser(ctx context.Context, profile model.UserProfile) (bool, error)
	// LatestModel returns the most recent model record, or ErrNotFound.
	LatestModel(ctx context.Context) (model.ModelRecord, error)
	RecordModel(ctx context.Context, rec model.ModelRecord) error
	Close(ctx context.Context) error
}

// ModelReader is the part of Store that selects the inference model.
type ModelReader interface {
	LatestModel(ctx context.Context) (model.ModelRecord, error)
}

// BestModel resolves the model name to use for inference. Any failure or a
// missing record falls back to model.DefaultModelName.
func BestModel(ctx context.Context, s ModelReader) string {
	if s == nil {
		return model.DefaultModelName
	}
	rec, err := s.LatestModel(ctx)
	if err != nil || rec.BestModel == "" {
		return model.DefaultModelName
	}
	return rec.BestModel
}
