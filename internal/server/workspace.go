package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/cogniscan/internal/identity"
	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/pipeline"
	"github.com/agenthands/cogniscan/internal/results"
	"github.com/agenthands/cogniscan/internal/visuals"
)

// Workspace is everything one browser owns: its session, its pending notices
// and, while someone is signed in, that user's View.
type Workspace struct {
	ID       string
	Provider *identity.Provider

	newView  func(owner string) *View
	mu       sync.Mutex
	notices  []model.Notice
	view     *View
	lastSeen time.Time
	training sync.WaitGroup
}

// Session is safe on a nil workspace, which is never signed in.
func (w *Workspace) Session() (model.Session, bool) {
	if w == nil {
		return model.Session{}, false
	}
	return w.Provider.Store().Current()
}

// View returns the signed-in user's data, building it on first use. It is nil
// when nobody is signed in. A view left behind by another user, or by a
// session that expired, is closed before anything can read it.
func (w *Workspace) View() *View {
	sess, ok := w.Session()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.view != nil && (!ok || w.view.Owner != sess.UserID) {
		w.view.close()
		w.view = nil
	}
	if ok && w.view == nil {
		w.view = w.newView(sess.UserID)
	}
	return w.view
}

func (w *Workspace) current() *View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// SignOut ends the session and drops everything the user left behind: queued
// notices, submissions, results and visualization handles.
func (w *Workspace) SignOut() {
	w.Provider.SignOut()
	w.mu.Lock()
	v := w.view
	w.view = nil
	w.notices = nil
	w.mu.Unlock()
	if v != nil {
		v.close()
	}
}

// Notify queues a notice for the next render.
func (w *Workspace) Notify(n model.Notice) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notices = append(w.notices, n)
}

// TakeNotices drains every pending notice, including the ones held by the
// pipeline and the trainer of the current view.
func (w *Workspace) TakeNotices() []model.Notice {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	out := w.notices
	w.notices = nil
	v := w.view
	w.mu.Unlock()

	if v == nil {
		return out
	}
	if n, ok := v.Pipeline.TakeNotice(); ok {
		out = append(out, n)
	}
	if n, ok := v.Trainer.TakeNotice(); ok {
		out = append(out, n)
	}
	return out
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

func (w *Workspace) close() {
	w.SignOut()
}

// View is one signed-in user's submissions, results table cursor, patient
// result and visualization handles.
type View struct {
	Owner    string
	Pipeline *pipeline.Pipeline
	Trainer  *pipeline.Trainer
	Single   *pipeline.SinglePredictor
	Registry *visuals.Registry

	mu      sync.Mutex
	pager   *results.Pager
	patient *model.PredictionRecord
}

// ResultsPage is one window of the results table.
type ResultsPage struct {
	Page       int                      `json:"page"`
	TotalPages int                      `json:"totalPages"`
	Total      int                      `json:"total"`
	HasPrev    bool                     `json:"hasPrev"`
	HasNext    bool                     `json:"hasNext"`
	Records    []model.PredictionRecord `json:"records"`
}

// Page moves the cursor to page, or leaves it where it is when page is not
// positive, and returns the window under it. A new batch starts a new cursor
// at page 1. ok is false until a batch has been published.
func (v *View) Page(pageSize, page int) (ResultsPage, bool) {
	batch := v.Pipeline.Batch()
	if batch == nil {
		return ResultsPage{}, false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pager == nil || v.pager.Batch() != batch {
		v.pager = results.NewPager(batch, pageSize)
	}
	if page > 0 {
		v.pager.Goto(page)
	}
	return ResultsPage{
		Page:       v.pager.Page(),
		TotalPages: v.pager.TotalPages(),
		Total:      batch.Len(),
		HasPrev:    v.pager.HasPrev(),
		HasNext:    v.pager.HasNext(),
		Records:    v.pager.Window(),
	}, true
}

func (v *View) setPatientResult(rec *model.PredictionRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.patient = rec
}

func (v *View) PatientResult() *model.PredictionRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.patient
}

// close cancels the running submission and releases every handle.
func (v *View) close() {
	v.Pipeline.Close()
	v.mu.Lock()
	v.pager = nil
	v.patient = nil
	v.mu.Unlock()
}

// Workspaces maps cookie values to workspaces and evicts the idle ones.
type Workspaces struct {
	build func(id string) *Workspace
	idle  time.Duration
	now   func() time.Time

	mu    sync.Mutex
	items map[string]*Workspace

	stop chan struct{}
	once sync.Once
}

func NewWorkspaces(build func(id string) *Workspace, idle time.Duration) *Workspaces {
	return &Workspaces{
		build: build,
		idle:  idle,
		now:   time.Now,
		items: make(map[string]*Workspace),
		stop:  make(chan struct{}),
	}
}

// Get returns the workspace for id and marks it as used.
func (ws *Workspaces) Get(id string) (*Workspace, bool) {
	ws.mu.Lock()
	w, ok := ws.items[id]
	ws.mu.Unlock()
	if ok {
		w.touch(ws.now())
	}
	return w, ok
}

func (ws *Workspaces) Create() *Workspace {
	w := ws.build(uuid.NewString())
	w.touch(ws.now())
	ws.mu.Lock()
	ws.items[w.ID] = w
	ws.mu.Unlock()
	return w
}

func (ws *Workspaces) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.items)
}

// Evict closes every workspace unused for longer than the idle timeout and
// returns how many were closed.
func (ws *Workspaces) Evict() int {
	return ws.evictBefore(ws.now().Add(-ws.idle))
}

func (ws *Workspaces) evictBefore(cutoff time.Time) int {
	var stale []*Workspace

	ws.mu.Lock()
	for id, w := range ws.items {
		if w.idleSince().Before(cutoff) {
			stale = append(stale, w)
			delete(ws.items, id)
		}
	}
	ws.mu.Unlock()

	for _, w := range stale {
		w.close()
	}
	return len(stale)
}

// Run evicts on every tick until Close.
func (ws *Workspaces) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ws.Evict()
		case <-ws.stop:
			return
		}
	}
}

// Close stops the janitor, if running, and closes every workspace.
func (ws *Workspaces) Close() {
	ws.once.Do(func() { close(ws.stop) })

	ws.mu.Lock()
	items := ws.items
	ws.items = make(map[string]*Workspace)
	ws.mu.Unlock()

	for _, w := range items {
		w.close()
		w.training.Wait()
	}
}
