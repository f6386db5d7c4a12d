package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Agent produces signals for a symbol. Implementations must be safe for
// concurrent calls and must not mutate shared state; a nil signal with a
// nil error means the agent has no opinion this cycle.
type Agent interface {
	ID() string
	Kind() Kind
	Signal(ctx context.Context, symbol string, snapshot MarketSnapshot) (*Signal, error)
}

// Registry holds the known agents for one trading context. Unknown kinds
// are rejected at registration, not discovered at runtime.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent, validating its kind and rejecting duplicate IDs.
func (r *Registry) Register(a Agent) error {
	if a == nil {
		return fmt.Errorf("agent is nil")
	}
	if !a.Kind().Valid() {
		return fmt.Errorf("agent %q: unknown kind %q", a.ID(), a.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[a.ID()]; exists {
		return fmt.Errorf("agent %q already registered", a.ID())
	}
	r.agents[a.ID()] = a
	return nil
}

// Get returns the agent with the given ID.
func (r *Registry) Get(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// List returns all registered agents in stable ID order.
func (r *Registry) List() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// IDs returns the registered agent IDs in stable order.
func (r *Registry) IDs() []string {
	agents := r.List()
	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID()
	}
	return ids
}
