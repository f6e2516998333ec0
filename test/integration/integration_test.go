//go:build integration

package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cogniscan/internal/api"
	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/docstore"
	"github.com/agenthands/cogniscan/internal/driver"
	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/pipeline"
	"github.com/agenthands/cogniscan/internal/visuals"
)

const patientsCSV = `NACCID,BIRTHYR,SEX,EDUC,UDSBENTC,MOCATRAI,AMNDEM,NACCPPAG,AMYLPET,DYSILL,DYSILLIF
P001,1950,1,12,1,0,0,1,0,0,0
P002,1940,2,16,1,0,1,1,0,0,0
`

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func TestMain(m *testing.M) {
	// Load environment if present
	_ = godotenv.Load("../../.env")
	os.Exit(m.Run())
}

func TestBackendAPI(t *testing.T) {
	baseURL := os.Getenv("COGNISCAN_API_URL")
	token := os.Getenv("COGNISCAN_API_TOKEN")
	if baseURL == "" || token == "" {
		t.Skip("Skipping integration test: COGNISCAN_API_URL or COGNISCAN_API_TOKEN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := api.New(baseURL, staticToken(token))
	src := dataset.NewMemorySource("patients.csv", []byte(patientsCSV))

	records, err := client.PredictBatch(ctx, src, model.DefaultModelName)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.True(t, r.ValidClass(), "class %d for %s", r.ClassLabel, r.PatientID)
	}

	rec, err := client.PredictSingle(ctx, model.PatientAttributes{
		PatientID: "P001", BirthYear: 1950, Sex: model.SexMale, Education: 12, UDSBENTC: 1, NACCPPAG: 1,
	}, model.DefaultModelName)
	require.NoError(t, err)
	assert.True(t, rec.ValidClass())

	registry := visuals.NewRegistry()
	pipe := pipeline.New(client, nil, registry)
	defer pipe.Close()
	res, err := pipe.Submit(ctx, pipeline.Request{Source: src, Visualize: true})
	require.NoError(t, err)
	assert.Contains(t, []pipeline.State{pipeline.Succeeded, pipeline.PartiallyFailed}, res.State)
	for _, v := range pipe.Snapshot().Visuals {
		if v.Status != model.VisualizationSuccess {
			continue
		}
		h, ok := registry.Lookup(v.HandleID)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(h.ContentType(), "image/"), v.Name)
	}
}

func TestMemgraphDocstore(t *testing.T) {
	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}
	ctx := context.Background()

	d, err := driver.NewMemgraphDriver(ctx, uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"), nil)
	require.NoError(t, err)
	require.NoError(t, d.BuildIndices(ctx))
	store := docstore.NewGraph(d)
	defer store.Close(ctx)

	uid := "it-" + uuid.NewString()
	created, err := store.EnsureUser(ctx, model.UserProfile{UserID: uid, Name: "Integration", Email: uid + "@example.com", CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.EnsureUser(ctx, model.UserProfile{UserID: uid, Name: "Again"})
	require.NoError(t, err)
	assert.False(t, created, "an existing profile is never overwritten")

	// roles are granted out of band; a fresh profile has none
	role, err := store.UserRole(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUnknown, role)

	best := "model-" + uuid.NewString()[:8]
	require.NoError(t, store.RecordModel(ctx, model.ModelRecord{BestModel: best, UserID: uid, Filename: "cohort.csv", Timestamp: time.Now()}))
	assert.Equal(t, best, docstore.BestModel(ctx, store))
}
