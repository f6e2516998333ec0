package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/telemetry"
)

type TrainBackend interface {
	Train(ctx context.Context, src dataset.Source) (*model.TrainingResult, error)
}

type ModelRecorder interface {
	RecordModel(ctx context.Context, rec model.ModelRecord) error
}

// Trainer runs training submissions and holds at most one current result.
// A completed run is recorded so later predictions use its best model.
type Trainer struct {
	backend   TrainBackend
	recorder  ModelRecorder
	validator *dataset.Validator
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	now       func() time.Time

	mu     sync.Mutex
	state  State
	result *model.TrainingResult
	notice *model.Notice
}

func NewTrainer(backend TrainBackend, recorder ModelRecorder, validator *dataset.Validator, logger *slog.Logger, metrics *telemetry.Metrics) *Trainer {
	if validator == nil {
		validator = dataset.NewValidator(dataset.DefaultPreviewRows)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{
		backend:   backend,
		recorder:  recorder,
		validator: validator,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Submit trains on src for userID and blocks until the backend answers.
func (t *Trainer) Submit(ctx context.Context, userID string, src dataset.Source) (*model.TrainingResult, error) {
	t.mu.Lock()
	if t.state.Busy() {
		t.mu.Unlock()
		return nil, ErrBusy
	}
	if err := dataset.CheckSelection(src); err != nil {
		t.setNoticeLocked(apperr.Notice("Validation Error", err))
		t.mu.Unlock()
		return nil, err
	}
	t.state = Validating
	t.notice = nil
	t.mu.Unlock()

	missing, err := t.validator.Missing(src, dataset.ModeTraining)
	if err == nil && len(missing) > 0 {
		err = &apperr.ValidationError{
			Field:   "file",
			Message: "Invalid file format. Missing required fields: " + strings.Join(missing, ", "),
		}
	}
	if err != nil {
		t.finish(ctx, Failed, apperr.Notice("Invalid file format", err))
		return nil, err
	}

	t.mu.Lock()
	t.state = Submitting
	t.result = nil
	t.mu.Unlock()

	t.logger.Info("training started", "user", userID, "file", src.Name())
	result, err := t.backend.Train(ctx, src)
	if err != nil {
		t.finish(ctx, Failed, apperr.Notice("Training Failed", err))
		return nil, err
	}
	result.UserID = userID
	if result.Filename == "" {
		result.Filename = src.Name()
	}
	if result.Status == "" {
		result.Status = model.TrainingCompleted
	}

	notice := model.Notice{
		Level: model.NoticeSuccess,
		Title: "Training Completed",
		Text:  "Best model: " + result.BestModel,
	}
	if result.Status == model.TrainingCompleted && result.BestModel != "" && t.recorder != nil {
		rec := model.ModelRecord{BestModel: result.BestModel, UserID: userID, Filename: result.Filename, Timestamp: t.now()}
		if err := t.recorder.RecordModel(ctx, rec); err != nil {
			t.logger.Warn("failed to record trained model", "model", result.BestModel, "error", err)
			notice.Level = model.NoticeWarning
			notice.Text += ". The model could not be saved as the default for predictions."
		}
	}

	t.mu.Lock()
	t.result = result
	t.mu.Unlock()

	state := Succeeded
	if result.Status == model.TrainingFailed {
		state = Failed
		notice = model.Notice{Level: model.NoticeError, Title: "Training Failed", Text: result.ErrorMessage}
	}
	t.finish(ctx, state, notice)
	t.logger.Info("training finished", "user", userID, "best_model", result.BestModel, "status", result.Status)
	return result, nil
}

func (t *Trainer) finish(ctx context.Context, state State, notice model.Notice) {
	t.mu.Lock()
	t.state = Idle
	t.setNoticeLocked(notice)
	t.mu.Unlock()
	t.metrics.RecordSubmission(ctx, "train", state.String())
}

func (t *Trainer) setNoticeLocked(n model.Notice) {
	t.notice = &n
}

func (t *Trainer) Result() *model.TrainingResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

func (t *Trainer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Trainer) CanSubmit() bool {
	return !t.State().Busy()
}

func (t *Trainer) TakeNotice() (model.Notice, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.notice == nil {
		return model.Notice{}, false
	}
	n := *t.notice
	t.notice = nil
	return n, true
}
