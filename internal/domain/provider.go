package domain

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// RatePolicy caps calls per sliding window. A zero policy means unlimited.
type RatePolicy struct {
	Calls  int           `json:"calls"`
	Window time.Duration `json:"window"`
}

func (p RatePolicy) Limited() bool { return p.Calls > 0 && p.Window > 0 }

// Descriptor is a provider's static registration data.
type Descriptor struct {
	Name         string
	Capabilities []Capability
	CallTimeout  time.Duration
	Rate         RatePolicy
	// Weight is the source reliability in [0,1]. It feeds relevance scoring
	// and breaks deduplication ties.
	Weight float64
}

func (d Descriptor) Serves(c Capability) bool {
	for _, cap := range d.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// Provider is one external data source. Fetch performs the network call and
// returns the raw vendor payload; Normalize is a pure mapping of that payload
// into records. Providers must not mutate shared state: the executor may
// abandon an in-flight call when the query deadline fires.
type Provider[R Record] interface {
	Descriptor() Descriptor
	Fetch(ctx context.Context, q Query) ([]byte, error)
	Normalize(payload []byte) ([]R, error)
}

// Registry holds the providers for one record type. It is populated at
// startup and treated as immutable once handed to an engine.
type Registry[R Record] struct {
	providers []Provider[R]
	names     map[string]struct{}
}

func NewRegistry[R Record]() *Registry[R] {
	return &Registry[R]{names: make(map[string]struct{})}
}

func (r *Registry[R]) Register(p Provider[R]) error {
	name := p.Descriptor().Name
	if name == "" {
		return fmt.Errorf("provider has no name")
	}
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.providers = append(r.providers, p)
	return nil
}

// Providers returns the registered providers sorted by name, so everything
// downstream iterates them in a stable order.
func (r *Registry[R]) Providers() []Provider[R] {
	out := make([]Provider[R], len(r.providers))
	copy(out, r.providers)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor().Name < out[j].Descriptor().Name
	})
	return out
}

func (r *Registry[R]) Descriptors() []Descriptor {
	ps := r.Providers()
	out := make([]Descriptor, len(ps))
	for i, p := range ps {
		out[i] = p.Descriptor()
	}
	return out
}
