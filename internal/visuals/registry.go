// Package visuals turns encoded chart payloads into revocable in-memory
// handles. A Set owns the handles of one submission and is the only thing that
// releases them.
package visuals

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/agenthands/cogniscan/internal/model"
)

var ErrReleased = errors.New("visuals: handle released")

type Handle struct {
	id          string
	contentType string
	registry    *Registry

	mu       sync.Mutex
	data     []byte
	released bool
}

func (h *Handle) ID() string          { return h.id }
func (h *Handle) ContentType() string { return h.contentType }

// Bytes returns the decoded image. It fails with ErrReleased after Release.
func (h *Handle) Bytes() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, ErrReleased
	}
	return h.data, nil
}

func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Release revokes the handle. Only the first call has an effect; it reports
// whether this call did the release.
func (h *Handle) Release() bool {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return false
	}
	h.released = true
	h.data = nil
	h.mu.Unlock()

	h.registry.forget(h.id)
	return true
}

type Option func(*Registry)

// WithObserver is called with +1/-1 as handles are acquired and released.
func WithObserver(fn func(delta int64)) Option {
	return func(r *Registry) { r.observe = fn }
}

func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// Registry resolves handle IDs for serving. It never releases on its own.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
	newID   func() string
	observe func(delta int64)
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		handles: make(map[string]*Handle),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire decodes payload and registers a live handle for it.
func (r *Registry) Acquire(p model.VisualPayload) (*Handle, error) {
	data, err := Decode(p.ImageData)
	if err != nil {
		return nil, err
	}
	contentType := p.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	h := &Handle{id: r.newID(), contentType: contentType, registry: r, data: data}
	r.mu.Lock()
	r.handles[h.id] = h
	r.mu.Unlock()
	if r.observe != nil {
		r.observe(1)
	}
	return h, nil
}

func (r *Registry) Lookup(id string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// Live is the number of handles acquired and not yet released.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

func (r *Registry) forget(id string) {
	r.mu.Lock()
	_, ok := r.handles[id]
	delete(r.handles, id)
	r.mu.Unlock()
	if ok && r.observe != nil {
		r.observe(-1)
	}
}

// Decode strips an optional data URL prefix and decodes the base64 body.
func Decode(imageData string) ([]byte, error) {
	body := strings.TrimSpace(imageData)
	if strings.HasPrefix(body, "data:") {
		_, after, ok := strings.Cut(body, ",")
		if !ok {
			return nil, errors.New("visuals: malformed data URL")
		}
		body = after
	}
	if body == "" {
		return nil, errors.New("visuals: empty image payload")
	}
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("visuals: decode image: %w", err)
	}
	return data, nil
}
