package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/model"
)

const inferenceHeader = "NACCID,BIRTHYR,SEX,EDUC,UDSBENTC,MOCATRAI,AMNDEM,NACCPPAG,AMYLPET,DYSILL,DYSILLIF"

type memSource struct {
	name string
	data []byte
}

func (m *memSource) Name() string { return m.name }
func (m *memSource) Size() int64  { return int64(len(m.data)) }
func (m *memSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func csvSource(name, header string, rows ...string) dataset.Source {
	return &memSource{name: name, data: []byte(header + "\n" + strings.Join(rows, "\n") + "\n")}
}

func validSource() dataset.Source {
	return csvSource("patients.csv", inferenceHeader,
		"P1,1950,1,12,1,0,0,1,0,0,0",
		"P2,1940,2,16,1,0,1,1,0,0,0",
	)
}

var pngPayload = model.VisualPayload{
	ImageData:   "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nimg")),
	ContentType: "image/png",
}

// fakeBackend answers from canned values. A non-nil gate blocks PredictBatch
// until it is closed.
type fakeBackend struct {
	mu         sync.Mutex
	records    []model.PredictionRecord
	predictErr error
	vizErr     map[string]error
	gate       chan struct{}
	predicts   int
	renders    int
	models     []string
	started    chan struct{}
}

func (f *fakeBackend) PredictBatch(ctx context.Context, src dataset.Source, modelName string) ([]model.PredictionRecord, error) {
	f.mu.Lock()
	f.predicts++
	f.models = append(f.models, modelName)
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records, f.predictErr
}

func (f *fakeBackend) GenerateVisualization(ctx context.Context, kind string, src dataset.Source, modelName string) (model.VisualPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders++
	if err := f.vizErr[kind]; err != nil {
		return model.VisualPayload{}, err
	}
	return pngPayload, nil
}

func (f *fakeBackend) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.predicts, f.renders
}

func (f *fakeBackend) PredictSingle(ctx context.Context, p model.PatientAttributes, modelName string) (model.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predicts++
	f.models = append(f.models, modelName)
	if f.predictErr != nil {
		return model.PredictionRecord{}, f.predictErr
	}
	return model.PredictionRecord{PatientID: p.PatientID, ClassLabel: model.ClassMCI}, nil
}

type fakeModels struct {
	name string
	err  error
}

func (f fakeModels) LatestModel(context.Context) (model.ModelRecord, error) {
	if f.err != nil {
		return model.ModelRecord{}, f.err
	}
	if f.name == "" {
		return model.ModelRecord{}, errors.New("no model")
	}
	return model.ModelRecord{BestModel: f.name}, nil
}

func sampleRecords() []model.PredictionRecord {
	return []model.PredictionRecord{
		{PatientID: "P1", ClassLabel: 1},
		{PatientID: "P2", ClassLabel: 3},
	}
}
