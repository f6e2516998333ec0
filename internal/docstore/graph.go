package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/cogniscan/internal/driver"
	"github.com/agenthands/cogniscan/internal/model"
)

// Graph stores users and model records as nodes in Memgraph. Timestamps are
// kept as Unix milliseconds.
type Graph struct {
	driver driver.GraphDriver
}

func NewGraph(d driver.GraphDriver) *Graph {
	return &Graph{driver: d}
}

func (g *Graph) UserRole(ctx context.Context, uid string) (model.Role, error) {
	res, err := g.driver.ExecuteQuery(ctx, driver.GetUserQuery, map[string]any{"uid": uid})
	if err != nil {
		return model.RoleUnknown, fmt.Errorf("get user %s: %w", uid, err)
	}
	if len(res.Records) == 0 {
		return model.RoleUnknown, ErrNotFound
	}
	role := stringField(res.Records[0], "role")
	return model.ParseRole(role), nil
}

func (g *Graph) EnsureUser(ctx context.Context, profile model.UserProfile) (bool, error) {
	createdAt := profile.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := g.driver.ExecuteQuery(ctx, driver.EnsureUserQuery, map[string]any{
		"uid":        profile.UserID,
		"name":       profile.Name,
		"email":      profile.Email,
		"created_at": createdAt.UnixMilli(),
	})
	if err != nil {
		return false, fmt.Errorf("ensure user %s: %w", profile.UserID, err)
	}
	if len(res.Records) == 0 {
		return false, nil
	}
	created, _ := res.Records[0].Get("created")
	b, _ := created.(bool)
	return b, nil
}

func (g *Graph) LatestModel(ctx context.Context) (model.ModelRecord, error) {
	res, err := g.driver.ExecuteQuery(ctx, driver.LatestModelQuery, nil)
	if err != nil {
		return model.ModelRecord{}, fmt.Errorf("latest model: %w", err)
	}
	if len(res.Records) == 0 {
		return model.ModelRecord{}, ErrNotFound
	}
	rec := res.Records[0]
	out := model.ModelRecord{
		BestModel: stringField(rec, "best_model"),
		UserID:    stringField(rec, "user_id"),
		Filename:  stringField(rec, "filename"),
	}
	if ts, ok := rec.Get("timestamp"); ok {
		if ms, ok := ts.(int64); ok {
			out.Timestamp = time.UnixMilli(ms)
		}
	}
	return out, nil
}

func (g *Graph) RecordModel(ctx context.Context, rec model.ModelRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := g.driver.ExecuteQuery(ctx, driver.SaveModelQuery, map[string]any{
		"uuid":       uuid.NewString(),
		"best_model": rec.BestModel,
		"user_id":    rec.UserID,
		"filename":   rec.Filename,
		"timestamp":  ts.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("record model: %w", err)
	}
	return nil
}

func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func stringField(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
