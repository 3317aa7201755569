package extraction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Backend converts a rate-sheet file into a structured Document.
type Backend interface {
	Name() string
	Extract(ctx context.Context, in Input) (*Document, error)
}

// Registry holds the available backends and routes each input to one.
// Routing precedence: explicit per-lender override, then content type.
// PDF goes to the AI backend when one is configured, falling back to
// the deterministic layout parser; CSV goes to the CSV parser.
type Registry struct {
	mu        sync.RWMutex
	backends  map[string]Backend
	overrides map[uuid.UUID]string
	ai        string
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		backends:  make(map[string]Backend),
		overrides: make(map[uuid.UUID]string),
	}
}

// Register adds a backend under its own name.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
}

// RegisterAI adds a backend and marks it as the PDF default.
func (r *Registry) RegisterAI(b Backend) {
	r.Register(b)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ai = b.Name()
}

// Route pins a lender to a named backend regardless of content type.
func (r *Registry) Route(lenderID uuid.UUID, backend string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[lenderID] = backend
}

// Select resolves the backend for an input.
func (r *Registry) Select(in Input) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.overrides[in.LenderID]; ok {
		b, ok := r.backends[name]
		if !ok {
			return nil, fmt.Errorf("%w: lender routed to unregistered backend %q", ErrNoBackend, name)
		}
		return b, nil
	}

	switch {
	case isPDF(in):
		if r.ai != "" {
			return r.backends[r.ai], nil
		}
		if b, ok := r.backends["pdf"]; ok {
			return b, nil
		}
		return nil, fmt.Errorf("%w: no backend handles PDF sheets", ErrNoBackend)
	case isCSV(in):
		if b, ok := r.backends["csv"]; ok {
			return b, nil
		}
	}

	return nil, fmt.Errorf("%w: unsupported content type %q", ErrNoBackend, in.ContentType)
}

func isPDF(in Input) bool {
	return in.ContentType == "application/pdf" ||
		strings.HasSuffix(strings.ToLower(in.Filename), ".pdf")
}

func isCSV(in Input) bool {
	switch in.ContentType {
	case "text/csv", "application/csv":
		return true
	}
	return strings.HasSuffix(strings.ToLower(in.Filename), ".csv")
}
