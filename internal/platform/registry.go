package platform

import "sort"

// Registry holds the adapters whose credentials are actually configured.
// Lookups for anything else fail with a config error instead of letting a
// half configured integration reach the provider.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Platform()] = a
}

func (r *Registry) Get(platform string) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, newError(platform, "registry", KindConfig, "platform not configured")
	}
	return a, nil
}

func (r *Registry) Has(platform string) bool {
	_, ok := r.adapters[platform]
	return ok
}

func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
