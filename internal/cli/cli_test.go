package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/docstore"
	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/pipeline"
	"github.com/agenthands/cogniscan/internal/results"
	"github.com/agenthands/cogniscan/internal/visuals"
)

const header = "NACCID,BIRTHYR,SEX,EDUC,UDSBENTC,MOCATRAI,AMNDEM,NACCPPAG,AMYLPET,DYSILL,DYSILLIF"

func csv(name, head string, rows ...string) dataset.Source {
	return dataset.NewMemorySource(name, []byte(head+"\n"+strings.Join(rows, "\n")+"\n"))
}

func intp(v int) *int { return &v }

type fakeBackend struct {
	mu      sync.Mutex
	records []model.PredictionRecord
	vizErr  map[string]error
	train   *model.TrainingResult
	models  []string
}

func (f *fakeBackend) PredictBatch(_ context.Context, _ dataset.Source, modelName string) ([]model.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, modelName)
	return f.records, nil
}

func (f *fakeBackend) GenerateVisualization(_ context.Context, kind string, _ dataset.Source, _ string) (model.VisualPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.vizErr[kind]; err != nil {
		return model.VisualPayload{}, err
	}
	return model.VisualPayload{
		ImageData:   "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-"+kind)),
		ContentType: "image/png",
	}, nil
}

func (f *fakeBackend) Train(context.Context, dataset.Source) (*model.TrainingResult, error) {
	return f.train, nil
}

func (f *fakeBackend) PredictSingle(_ context.Context, p model.PatientAttributes, modelName string) (model.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, modelName)
	return model.PredictionRecord{PatientID: p.PatientID, ClassLabel: model.ClassMCI, Sex: intp(p.Sex)}, nil
}

func sampleRecords() []model.PredictionRecord {
	return []model.PredictionRecord{
		{PatientID: "P1", ClassLabel: model.ClassNormal, Age: intp(70), Sex: intp(model.SexMale)},
		{PatientID: "P2", ClassLabel: model.ClassDementia, Age: intp(82), Sex: intp(model.SexFemale)},
		{PatientID: "P3", ClassLabel: model.ClassDementia},
	}
}

func TestRunValidate(t *testing.T) {
	v := dataset.NewValidator(dataset.DefaultPreviewRows)

	t.Run("valid for inference", func(t *testing.T) {
		var out bytes.Buffer
		err := runValidate(&out, v, csv("patients.csv", header, "P1,1950,1,12,1,0,0,1,0,0,0"), dataset.ModeInference)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "patients.csv is ready for inference")
	})

	t.Run("training needs the target column", func(t *testing.T) {
		var out bytes.Buffer
		err := runValidate(&out, v, csv("patients.csv", header, "P1,1950,1,12,1,0,0,1,0,0,0"), dataset.ModeTraining)
		require.Error(t, err)
		assert.Contains(t, out.String(), "Missing required fields: NACCUDSD")
	})

	t.Run("wrong extension", func(t *testing.T) {
		var out bytes.Buffer
		err := runValidate(&out, v, csv("patients.txt", header), dataset.ModeInference)
		require.Error(t, err)
		assert.Contains(t, out.String(), "Validation Error")
	})
}

func TestParsePatient(t *testing.T) {
	p, err := parsePatient([]string{"naccid=P9", "BIRTHYR=1950", "SEX=2", "EDUC = 16", "DYSILLIF=-4"})
	require.NoError(t, err)
	assert.Equal(t, "P9", p.PatientID)
	assert.Equal(t, 1950, p.BirthYear)
	assert.Equal(t, model.SexFemale, p.Sex)
	assert.Equal(t, 16, p.Education)
	assert.Equal(t, -4, p.DYSILLIF)

	_, err = parsePatient([]string{"SEX"})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = parsePatient([]string{"EDUC=twelve"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "EDUC must be a whole number")
}

func TestRunPredictOne(t *testing.T) {
	backend := &fakeBackend{}
	predictor := pipeline.NewSinglePredictor(backend, docstore.NewMemory())

	var out bytes.Buffer
	p := model.PatientAttributes{PatientID: "P7", BirthYear: 1950, Sex: model.SexMale, Education: 12}
	require.NoError(t, runPredictOne(context.Background(), &out, predictor, p))
	assert.Contains(t, out.String(), "P7")
	assert.Contains(t, out.String(), model.ClassLabel(model.ClassMCI))
	assert.Equal(t, []string{model.DefaultModelName}, backend.models)

	out.Reset()
	p.Sex = 3
	require.Error(t, runPredictOne(context.Background(), &out, predictor, p))
	assert.Contains(t, out.String(), "Prediction Failed")
}

func TestRunPredict(t *testing.T) {
	backend := &fakeBackend{
		records: sampleRecords(),
		vizErr:  map[string]error{"feature_importance": errors.New("model has no importances")},
	}
	registry := visuals.NewRegistry()
	pipe := pipeline.New(backend, docstore.NewMemory(), registry)
	dir := filepath.Join(t.TempDir(), "viz")

	var out bytes.Buffer
	err := runPredict(context.Background(), &out, pipe, registry,
		csv("patients.csv", header, "P1,1950,1,12,1,0,0,1,0,0,0"),
		predictOptions{Page: 1, PageSize: 2, Visualize: true, OutDir: dir},
	)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Prediction Completed")
	assert.Contains(t, text, "Predictions (model: decisionTree)")
	assert.Contains(t, text, "Page 1 of 2 (3 patients)")
	assert.Contains(t, text, "P2")
	assert.NotContains(t, text, "P3")

	data, err := os.ReadFile(filepath.Join(dir, "correlation_heatmap.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-correlation_heatmap", string(data))
	_, err = os.Stat(filepath.Join(dir, "feature_importance.png"))
	assert.True(t, os.IsNotExist(err))

	pipe.Close()
	assert.Zero(t, registry.Live())
}

func TestRunPredict_InvalidHeader(t *testing.T) {
	backend := &fakeBackend{records: sampleRecords()}
	registry := visuals.NewRegistry()
	pipe := pipeline.New(backend, docstore.NewMemory(), registry)
	defer pipe.Close()

	var out bytes.Buffer
	err := runPredict(context.Background(), &out, pipe, registry,
		csv("patients.csv", "NACCID,SEX", "P1,1"),
		predictOptions{Page: 1, PageSize: 10},
	)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Invalid file format")
	assert.Empty(t, backend.models)
}

func TestRunTrain(t *testing.T) {
	backend := &fakeBackend{train: &model.TrainingResult{
		Status: model.TrainingCompleted,
		Models: map[string]model.ModelMetrics{
			"decisionTree": {Accuracy: 0.8, F1Score: 0.7},
			"randomForest": {Accuracy: 0.9, F1Score: 0.85},
		},
		BestModel: "randomForest",
	}}
	docs := docstore.NewMemory()
	trainer := pipeline.NewTrainer(backend, docs, dataset.NewValidator(dataset.DefaultPreviewRows), nil, nil)

	var out bytes.Buffer
	err := runTrain(context.Background(), &out, trainer, "u1",
		csv("cohort.csv", header+",NACCUDSD", "P1,1950,1,12,1,0,0,1,0,0,0,1"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Training Completed")
	assert.Contains(t, out.String(), "randomForest *")
	assert.Equal(t, "randomForest", docstore.BestModel(context.Background(), docs))
}

func TestRunTrain_MissingTarget(t *testing.T) {
	trainer := pipeline.NewTrainer(&fakeBackend{}, docstore.NewMemory(), dataset.NewValidator(dataset.DefaultPreviewRows), nil, nil)

	var out bytes.Buffer
	err := runTrain(context.Background(), &out, trainer, "u1", csv("cohort.csv", header, "P1,1950,1,12,1,0,0,1,0,0,0"))
	require.Error(t, err)
	assert.Contains(t, out.String(), "NACCUDSD")
}

func TestRenderPage(t *testing.T) {
	batch := results.NewBatch(1, sampleRecords())
	pager := results.NewPager(batch, 2)
	pager.Goto(2)

	page := renderPage(pager)
	assert.Contains(t, page, "P3")
	assert.Contains(t, page, "Page 2 of 2 (3 patients)")

	dist := renderDistribution(batch)
	assert.Contains(t, dist, "66.7%")
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".png", extensionFor("image/png"))
	assert.Equal(t, ".svg", extensionFor("image/svg+xml"))
	assert.Equal(t, ".bin", extensionFor("application/x-unknown-thing"))
}
