package skill

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

var (
	// ErrDuplicateSkill means two handlers claimed the same id. This is a
	// packaging defect: startup should fail rather than let one skill
	// silently shadow another.
	ErrDuplicateSkill = errors.New("skill id already registered")

	// ErrSkillNotFound means no skill is registered under the requested id.
	ErrSkillNotFound = errors.New("skill not found")
)

// Registry is the process-wide skill catalog, keyed by skill id. It is
// populated once during startup and read-only afterwards. A flat map keeps
// lookup O(1); extensibility comes from writing a new skill constructor, not
// from a richer taxonomy.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*Definition
	order []*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Definition)}
}

// Register adds a definition. The first registration of an id wins;
// a second returns ErrDuplicateSkill and leaves the catalog untouched.
func (r *Registry) Register(def *Definition) error {
	if def.ID == "" {
		return fmt.Errorf("register skill: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[def.ID]; exists {
		return fmt.Errorf("register %q: %w", def.ID, ErrDuplicateSkill)
	}
	r.byID[def.ID] = def
	r.order = append(r.order, def)
	return nil
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrSkillNotFound)
	}
	return def, nil
}

// All returns every registered skill in registration order. The order is
// stable across calls but reflects startup wiring order, so callers should
// use it for display only.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, len(r.order))
	copy(out, r.order)
	return out
}

// ByDomain yields the registered skills in the given domain, in registration
// order. The sequence is restartable; each iteration re-reads the catalog.
func (r *Registry) ByDomain(d Domain) iter.Seq[*Definition] {
	return func(yield func(*Definition) bool) {
		for _, def := range r.All() {
			if def.Domain != d {
				continue
			}
			if !yield(def) {
				return
			}
		}
	}
}

// Descriptors returns the public view of every skill, registration order.
func (r *Registry) Descriptors() []Descriptor {
	defs := r.All()
	out := make([]Descriptor, len(defs))
	for i, def := range defs {
		out[i] = def.Descriptor()
	}
	return out
}
