package steps

import (
	"sort"
	"sync"

	"github.com/stack21/flowengine/pkg/schema"
)

// Registry is a thread-safe map of step type to Handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[schema.StepType]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[schema.StepType]Handler),
	}
}

// Register adds a handler. Returns error on duplicate type.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return schema.NewError(schema.ErrCodeValidation, "handler is nil")
	}
	t := h.Type()
	if t == "" {
		return schema.NewError(schema.ErrCodeValidation, "handler type is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[t]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "handler for step type %q already registered", t)
	}

	r.handlers[t] = h
	return nil
}

// Replace registers h, overwriting any handler of the same type.
func (r *Registry) Replace(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Type()] = h
}

// Get returns the handler for stepType or an UNSUPPORTED_STEP_TYPE error.
func (r *Registry) Get(stepType schema.StepType) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[stepType]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeUnsupportedStepType, "unsupported step type: %s", stepType)
	}
	return h, nil
}

// List returns info for all handlers, sorted by type.
func (r *Registry) List() []HandlerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]HandlerInfo, 0, len(r.handlers))
	for t, h := range r.handlers {
		infos = append(infos, HandlerInfo{Type: t, Description: h.Description()})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Type < infos[j].Type
	})
	return infos
}

func (r *Registry) Has(stepType schema.StepType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[stepType]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

var _ Lookup = (*Registry)(nil)
