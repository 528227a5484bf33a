// Package registry holds the functions callable from the command language: a
// flat set of built-ins and a two-level provider.function namespace.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Namespace is an ordered set of callables contributed by one provider.
type Namespace struct {
	funcs map[string]*Callable
	order []string
}

func NewNamespace(callables ...*Callable) *Namespace {
	ns := &Namespace{funcs: make(map[string]*Callable)}
	for _, c := range callables {
		ns.Add(c)
	}
	return ns
}

// Add adds c, replacing any callable of the same name.
func (n *Namespace) Add(c *Callable) *Namespace {
	if _, exists := n.funcs[c.Name()]; !exists {
		n.order = append(n.order, c.Name())
	}
	n.funcs[c.Name()] = c
	return n
}

func (n *Namespace) Func(name string) (*Callable, bool) {
	c, ok := n.funcs[name]
	return c, ok
}

// Funcs returns the callables in the order they were added.
func (n *Namespace) Funcs() []*Callable {
	out := make([]*Callable, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.funcs[name])
	}
	return out
}

// Registry is safe for concurrent use. Providers are registered once at
// startup; built-ins may be added and removed at any time.
type Registry struct {
	mu        sync.RWMutex
	builtins  map[string]*Callable
	providers map[string]*Namespace
	order     []string
}

func New() *Registry {
	return &Registry{
		builtins:  make(map[string]*Callable),
		providers: make(map[string]*Namespace),
	}
}

// Register adds a provider namespace under name.
func (r *Registry) Register(name string, ns *Namespace) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%s: %w", name, ErrDuplicateProvider)
	}
	r.providers[name] = ns
	r.order = append(r.order, name)
	return nil
}

// SetBuiltin registers c as a built-in, replacing any built-in of the same
// name.
func (r *Registry) SetBuiltin(c *Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtins[c.Name()] = c
}

// RemoveBuiltin removes the named built-in and reports whether it existed.
func (r *Registry) RemoveBuiltin(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.builtins[name]; !ok {
		return false
	}
	delete(r.builtins, name)
	return true
}

func (r *Registry) Builtin(name string) (*Callable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.builtins[name]
	return c, ok
}

func (r *Registry) Provider(name string) (*Namespace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, ok := r.providers[name]
	return ns, ok
}

// Lookup resolves a provider function.
func (r *Registry) Lookup(provider, function string) (*Callable, bool) {
	ns, ok := r.Provider(provider)
	if !ok {
		return nil, false
	}
	return ns.Func(function)
}

// BuiltinNames returns the sorted names of all built-ins.
func (r *Registry) BuiltinNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builtins))
	for name := range r.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtins returns the built-ins sorted by name.
func (r *Registry) Builtins() []*Callable {
	names := r.BuiltinNames()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Callable, 0, len(names))
	for _, name := range names {
		if c, ok := r.builtins[name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ProviderNames returns provider names in registration order.
func (r *Registry) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Keywords returns every name a user can type in function position:
// built-in names and provider.function pairs.
func (r *Registry) Keywords() []string {
	keywords := r.BuiltinNames()
	for _, p := range r.ProviderNames() {
		ns, _ := r.Provider(p)
		for _, c := range ns.Funcs() {
			keywords = append(keywords, p+"."+c.Name())
		}
	}
	return keywords
}
