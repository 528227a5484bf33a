package env

import (
	"os"
	"regexp"
	"sync"
)

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver expands ${VAR} references. Variables set on the resolver (usually
// loaded from a .env file) are consulted after the process environment.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]string),
	}
}

// SetWarnFunc sets a function to be called for unresolved references.
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// Lookup returns the value of name, preferring a non-empty process
// environment variable over one set on the resolver.
func (r *Resolver) Lookup(name string) (string, bool) {
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

// Resolve replaces every ${VAR} in input. ${VAR:-default} falls back to
// default when VAR is unset or empty; an unresolved reference without a
// default is left in place.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := variablePattern.FindStringSubmatch(match)
		name := groups[1]

		if val, ok := r.Lookup(name); ok && val != "" {
			return val
		}
		if len(groups[0]) > len(name)+3 {
			return groups[2]
		}

		r.warn("unresolved environment variable: $%s", name)
		return match
	})
}

func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = r.Resolve(v)
	}
	return result
}

// HasUnresolvedVariables reports whether input still contains a reference
// that Resolve would leave in place.
func (r *Resolver) HasUnresolvedVariables(input string) bool {
	return variablePattern.MatchString(r.Resolve(input))
}
