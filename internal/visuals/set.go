package visuals

import (
	"sync"

	"github.com/agenthands/cogniscan/internal/model"
)

// Set holds the results and handles of one submission, in request order.
type Set struct {
	registry *Registry

	mu       sync.Mutex
	results  []model.VisualizationResult
	handles  []*Handle
	released bool
}

func (r *Registry) NewSet(kinds []model.VisualizationKind) *Set {
	results := make([]model.VisualizationResult, len(kinds))
	for i, k := range kinds {
		results[i] = model.VisualizationResult{Name: k.Name, Label: k.Label}
	}
	return &Set{registry: r, results: results}
}

// Store acquires payload as the result at index i. If the set was already
// released the handle is released straight away. A payload that does not
// decode is recorded as a failure and returned.
func (s *Set) Store(i int, p model.VisualPayload) error {
	h, err := s.registry.Acquire(p)
	if err != nil {
		s.Fail(i, err)
		return err
	}

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		h.Release()
		return nil
	}
	s.handles = append(s.handles, h)
	s.results[i].Status = model.VisualizationSuccess
	s.results[i].HandleID = h.ID()
	s.results[i].Error = ""
	s.mu.Unlock()
	return nil
}

// Fail records err as the result at index i.
func (s *Set) Fail(i int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[i].Status = model.VisualizationFailed
	s.results[i].HandleID = ""
	s.results[i].Error = err.Error()
}

// Results returns a copy of the per-kind results.
func (s *Set) Results() []model.VisualizationResult {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.VisualizationResult, len(s.results))
	copy(out, s.results)
	return out
}

// Failures counts results that ended in failure.
func (s *Set) Failures() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.results {
		if r.Status == model.VisualizationFailed {
			n++
		}
	}
	return n
}

// Release revokes every handle in the set. Safe to call more than once and on
// a nil set.
func (s *Set) Release() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	handles := s.handles
	s.handles = nil
	for i := range s.results {
		s.results[i].HandleID = ""
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Release()
	}
}

func (s *Set) Released() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
