// Package controllers contributes the provider functions of the shell:
// cookies, headers, servers, http, auth and response.
package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/engine"
	"github.com/abdul-hamid-achik/hitshell/packages/store"
)

// Controller is a named group of functions callable as name.function.
type Controller interface {
	Name() string
	Namespace() *registry.Namespace
}

// RegisterAll registers each controller's namespace under its name.
func RegisterAll(reg *registry.Registry, ctrls ...Controller) error {
	for _, c := range ctrls {
		if err := reg.Register(c.Name(), c.Namespace()); err != nil {
			return fmt.Errorf("registering controller: %w", err)
		}
	}
	return nil
}

// Defaults returns the standard controllers bound to e. Initial headers
// are installed as preprocessors.
func Defaults(e *engine.Engine, servers store.Servers, headers map[string]string) []Controller {
	h := NewHeaders(e)
	for k, v := range headers {
		h.Set(k, v)
	}
	return []Controller{
		NewCookies(e),
		h,
		NewServers(e, servers),
		NewHTTP(e),
		NewAuth(e),
		NewResponse(e),
	}
}

// ErrNoResponse is returned by response functions before any request has
// completed.
var ErrNoResponse = errors.New("no response yet, send a request first")

// Functions run synchronously on the REPL goroutine and have no context of
// their own; dispatch waits are bounded by the in-flight request instead.
func background() context.Context {
	return context.Background()
}
