package generator

import (
	"sort"
	"sync"

	"github.com/northquay/pharos/internal/core"
)

// Generator translates a price history into a deterministic, time-ordered
// sequence of trade intents. Implementations are selected by the caller;
// each Generate call is independent and safe to run concurrently as long
// as every call gets its own PriceTable.
type Generator interface {
	Name() string
	Description() string
	Generate(prices *core.PriceTable) ([]core.Order, error)
}

// Registry holds the available generators by name.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry creates an empty generator registry.
func NewRegistry() *Registry {
	return &Registry{generators: make(map[string]Generator)}
}

// Register adds a generator to the registry.
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.Name()] = g
}

// Get retrieves a generator by name.
func (r *Registry) Get(name string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[name]
	return g, ok
}

// Names returns the registered generator names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
