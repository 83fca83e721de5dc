package engine

import (
	"errors"
	"fmt"

	"github.com/rcliao/teachbot/internal/store"
	"github.com/rcliao/teachbot/internal/variant"
)

// ErrUnknownModel is returned for an unregistered model id.
var ErrUnknownModel = errors.New("unknown model")

// Descriptor identifies a registered model.
type Descriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry maps stable model ids to profiles. Hosts own their registry;
// there is no package-level instance.
type Registry struct {
	order    []string
	profiles map[string]variant.Profile
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]variant.Profile)}
}

// NewDefaultRegistry returns a registry holding the builtin profiles.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range variant.Builtins() {
		if err := r.Register(p); err != nil {
			panic(fmt.Sprintf("builtin profile %s: %v", p.ID, err))
		}
	}
	return r
}

// Register validates p and adds it. Ids must be unique.
func (r *Registry) Register(p variant.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, ok := r.profiles[p.ID]; ok {
		return fmt.Errorf("model %q already registered", p.ID)
	}
	r.order = append(r.order, p.ID)
	r.profiles[p.ID] = p
	return nil
}

// Profile returns the profile registered under id.
func (r *Registry) Profile(id string) (variant.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return variant.Profile{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return p, nil
}

// Descriptors lists the registered models in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		p := r.profiles[id]
		out = append(out, Descriptor{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	return out
}

// New instantiates model id persisted under storageKey in st.
func (r *Registry) New(id string, st store.Store, storageKey string, opts ...Option) (*Engine, error) {
	p, err := r.Profile(id)
	if err != nil {
		return nil, err
	}
	return New(p, st, storageKey, opts...), nil
}
