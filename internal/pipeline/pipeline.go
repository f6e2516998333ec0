package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/docstore"
	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/results"
	"github.com/agenthands/cogniscan/internal/telemetry"
	"github.com/agenthands/cogniscan/internal/visuals"
)

// Backend is the part of the backend API a dataset submission needs.
type Backend interface {
	PredictBatch(ctx context.Context, src dataset.Source, modelName string) ([]model.PredictionRecord, error)
	GenerateVisualization(ctx context.Context, kind string, src dataset.Source, modelName string) (model.VisualPayload, error)
}

type Request struct {
	Source    dataset.Source
	Visualize bool
}

// Result is how one submission ended.
type Result struct {
	Generation uint64
	State      State
	Err        error
	Notice     model.Notice
}

// Snapshot is the published view of a pipeline.
type Snapshot struct {
	Generation uint64                      `json:"generation"`
	State      State                       `json:"state"`
	Outcome    State                       `json:"outcome"`
	ModelName  string                      `json:"modelName,omitempty"`
	Batch      *results.Batch              `json:"-"`
	Visuals    []model.VisualizationResult `json:"visuals,omitempty"`
	Notice     *model.Notice               `json:"notice,omitempty"`
}

type Option func(*Pipeline)

func WithKinds(kinds []model.VisualizationKind) Option {
	return func(p *Pipeline) { p.kinds = kinds }
}

func WithValidator(v *dataset.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline owns one view's submissions: the current state, the published
// record batch and the visualization handles of the last run. Only one
// submission runs at a time.
type Pipeline struct {
	backend   Backend
	models    docstore.ModelReader
	registry  *visuals.Registry
	validator *dataset.Validator
	kinds     []model.VisualizationKind
	logger    *slog.Logger
	metrics   *telemetry.Metrics

	mu        sync.Mutex
	state     State
	outcome   State
	gen       uint64
	modelName string
	batch     *results.Batch
	set       *visuals.Set
	inflight  *visuals.Set
	notice    *model.Notice
	closed    bool

	subs broadcaster[Snapshot]
	wg   sync.WaitGroup
}

func New(backend Backend, models docstore.ModelReader, registry *visuals.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend:   backend,
		models:    models,
		registry:  registry,
		validator: dataset.NewValidator(dataset.DefaultPreviewRows),
		kinds:     model.VisualizationKinds,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start checks the entry guard and the file selection, then runs the
// submission in the background. The returned channel yields the result once.
func (p *Pipeline) Start(ctx context.Context, req Request) (<-chan Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.state.Busy() {
		return nil, ErrBusy
	}
	if err := dataset.CheckSelection(req.Source); err != nil {
		n := apperr.Notice("Validation Error", err)
		p.notice = &n
		p.publishLocked()
		return nil, err
	}

	p.gen++
	gen := p.gen
	p.state = Validating
	p.notice = nil
	p.publishLocked()

	done := make(chan Result, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		done <- p.run(context.WithoutCancel(ctx), gen, req)
	}()
	return done, nil
}

// Submit runs a submission to completion.
func (p *Pipeline) Submit(ctx context.Context, req Request) (Result, error) {
	done, err := p.Start(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return <-done, nil
}

func (p *Pipeline) run(ctx context.Context, gen uint64, req Request) Result {
	src := req.Source
	missing, err := p.validator.Missing(src, dataset.ModeInference)
	if err != nil {
		return p.fail(ctx, gen, "Validation Error", err)
	}
	if len(missing) > 0 {
		verr := &apperr.ValidationError{
			Field:   "file",
			Message: "Invalid file format. Missing required fields: " + strings.Join(missing, ", "),
		}
		return p.fail(ctx, gen, "Invalid file format", verr)
	}

	if !p.beginSubmitting(gen) {
		return Result{Generation: gen, State: Idle}
	}

	modelName := docstore.BestModel(ctx, p.models)
	p.mu.Lock()
	p.modelName = modelName
	p.mu.Unlock()
	p.logger.Info("submitting dataset", "generation", gen, "file", src.Name(), "model", modelName, "visualize", req.Visualize)

	var set *visuals.Set
	if req.Visualize {
		set = p.registry.NewSet(p.kinds)
		p.mu.Lock()
		if p.gen != gen || p.closed {
			p.mu.Unlock()
			set.Release()
			return Result{Generation: gen, State: Idle}
		}
		p.inflight = set
		p.mu.Unlock()
	}

	var (
		records []model.PredictionRecord
		predErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		records, predErr = p.backend.PredictBatch(ctx, src, modelName)
		return nil
	})
	if set != nil {
		g.Go(func() error {
			p.renderAll(ctx, set, src, modelName)
			return nil
		})
	}
	_ = g.Wait()

	return p.resolve(ctx, gen, records, predErr, set)
}

// renderAll requests every kind concurrently and records each outcome in set.
func (p *Pipeline) renderAll(ctx context.Context, set *visuals.Set, src dataset.Source, modelName string) {
	var g errgroup.Group
	for i, kind := range p.kinds {
		g.Go(func() error {
			payload, err := p.backend.GenerateVisualization(ctx, kind.Name, src, modelName)
			if err != nil {
				p.logger.Warn("visualization failed", "kind", kind.Name, "error", err)
				set.Fail(i, err)
				return nil
			}
			if err := set.Store(i, payload); err != nil {
				p.logger.Warn("visualization payload rejected", "kind", kind.Name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// beginSubmitting clears the previous run's records and handles and moves to
// Submitting. It reports false when gen is no longer current.
func (p *Pipeline) beginSubmitting(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen || p.closed {
		return false
	}
	p.batch = nil
	p.set.Release()
	p.set = nil
	p.modelName = ""
	p.state = Submitting
	p.publishLocked()
	return true
}

func (p *Pipeline) resolve(ctx context.Context, gen uint64, records []model.PredictionRecord, predErr error, set *visuals.Set) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inflight == set {
		p.inflight = nil
	}
	if p.gen != gen || p.closed {
		set.Release()
		p.logger.Debug("dropping result of superseded submission", "generation", gen)
		return Result{Generation: gen, State: Idle}
	}

	var res Result
	switch {
	case predErr != nil:
		set.Release()
		res = Result{Generation: gen, State: Failed, Err: predErr, Notice: apperr.Notice("Prediction Failed", predErr)}

	case set != nil && set.Failures() > 0:
		p.batch = results.NewBatch(gen, records)
		p.set = set
		var errs []error
		for _, r := range set.Results() {
			if r.Status == model.VisualizationFailed {
				errs = append(errs, fmt.Errorf("%s: %s", r.Label, r.Error))
			}
		}
		pf := &apperr.PartialFailure{Operation: "visualizations", Errs: errs}
		res = Result{Generation: gen, State: PartiallyFailed, Err: pf, Notice: model.Notice{
			Level: model.NoticeWarning,
			Title: "Prediction Completed",
			Text:  fmt.Sprintf("%d predictions ready. %s", len(records), apperr.UserMessage(pf)),
		}}

	default:
		p.batch = results.NewBatch(gen, records)
		p.set = set
		res = Result{Generation: gen, State: Succeeded, Notice: model.Notice{
			Level: model.NoticeSuccess,
			Title: "Prediction Completed",
			Text:  fmt.Sprintf("%d predictions ready.", len(records)),
		}}
	}

	p.finishLocked(ctx, res)
	return res
}

func (p *Pipeline) fail(ctx context.Context, gen uint64, title string, err error) Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen || p.closed {
		return Result{Generation: gen, State: Idle}
	}
	res := Result{Generation: gen, State: Failed, Err: err, Notice: apperr.Notice(title, err)}
	p.finishLocked(ctx, res)
	return res
}

// finishLocked publishes the terminal state, then returns to Idle.
func (p *Pipeline) finishLocked(ctx context.Context, res Result) {
	n := res.Notice
	p.notice = &n
	p.outcome = res.State
	p.state = res.State
	p.publishLocked()
	p.state = Idle
	p.publishLocked()

	p.metrics.RecordSubmission(ctx, "predict", res.State.String())
	if res.Err != nil {
		p.logger.Warn("submission finished", "generation", res.Generation, "state", res.State, "error", res.Err)
	} else {
		p.logger.Info("submission finished", "generation", res.Generation, "state", res.State)
	}
}

func (p *Pipeline) snapshotLocked() Snapshot {
	s := Snapshot{
		Generation: p.gen,
		State:      p.state,
		Outcome:    p.outcome,
		ModelName:  p.modelName,
		Batch:      p.batch,
		Visuals:    p.set.Results(),
	}
	if p.notice != nil {
		n := *p.notice
		s.Notice = &n
	}
	return s
}

func (p *Pipeline) publishLocked() {
	if p.closed {
		return
	}
	p.subs.publish(p.snapshotLocked())
}

func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe streams snapshots, starting with the current one. The channel is
// closed by cancel or by Close.
func (p *Pipeline) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.subscribe(p.snapshotLocked())
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// CanSubmit is false while a submission is validating or submitting.
func (p *Pipeline) CanSubmit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && !p.state.Busy()
}

// CanViewResults is true once a record batch has been published.
func (p *Pipeline) CanViewResults() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.batch != nil
}

func (p *Pipeline) Batch() *results.Batch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.batch
}

// TakeNotice returns the pending notice once.
func (p *Pipeline) TakeNotice() (model.Notice, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notice == nil {
		return model.Notice{}, false
	}
	n := *p.notice
	p.notice = nil
	return n, true
}

// Close tears the view down: no further state is published and every handle,
// including those of a submission still running, is released.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.gen++
	set, inflight := p.set, p.inflight
	p.set, p.inflight = nil, nil
	p.mu.Unlock()

	set.Release()
	inflight.Release()
	p.subs.close()
}

// Wait blocks until background submissions have returned.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
