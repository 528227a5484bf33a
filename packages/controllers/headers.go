package controllers

import (
	"fmt"
	"sync"

	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/engine"
	"github.com/abdul-hamid-achik/hitshell/packages/http"
)

// Headers keeps a table of headers added to every request. Each header is
// applied by a preprocessor registered under the header name.
type Headers struct {
	engine *engine.Engine

	mu     sync.Mutex
	values map[string]string
}

func NewHeaders(e *engine.Engine) *Headers {
	return &Headers{engine: e, values: make(map[string]string)}
}

func (h *Headers) Name() string { return "headers" }

func (h *Headers) Namespace() *registry.Namespace {
	return registry.NewNamespace(
		registry.MustCallable("list", h.List, registry.Describe("headers added to every request")),
		registry.MustCallable("set", h.Set, registry.Params("key", "value"),
			registry.Describe("add a header to every request")),
		registry.MustCallable("clear", h.Clear, registry.Params("key"),
			registry.Describe("stop sending a header")),
	)
}

// List returns a copy of the header table.
func (h *Headers) List() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, len(h.values))
	for k, v := range h.values {
		out[k] = v
	}
	return out
}

func (h *Headers) Set(key, value string) {
	h.mu.Lock()
	h.values[key] = value
	h.mu.Unlock()

	h.engine.RegisterPreprocessor(key, func(req *http.Request) {
		req.SetHeader(key, value)
	})
}

func (h *Headers) Clear(key string) error {
	h.mu.Lock()
	_, ok := h.values[key]
	delete(h.values, key)
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("header %q is not set", key)
	}
	h.engine.UnregisterPreprocessor(key)
	return nil
}
