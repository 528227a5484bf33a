package controllers

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/engine"
	"github.com/abdul-hamid-achik/hitshell/packages/http"
	"github.com/abdul-hamid-achik/hitshell/packages/store"
)

// Servers manages server bookmarks. The current bookmark's address is the
// client's base address.
type Servers struct {
	engine *engine.Engine
	store  store.Servers
}

func NewServers(e *engine.Engine, s store.Servers) *Servers {
	return &Servers{engine: e, store: s}
}

func (s *Servers) Name() string { return "servers" }

func (s *Servers) Namespace() *registry.Namespace {
	return registry.NewNamespace(
		registry.MustCallable("list", s.List, registry.Describe("server bookmarks")),
		registry.MustCallable("current", s.Current, registry.Describe("the selected server")),
		registry.MustCallable("add", s.Add, registry.Params("name", "address"),
			registry.Describe("bookmark a server; the first one is selected")),
		registry.MustCallable("use", s.Use, registry.Params("name"),
			registry.Describe("select a server")),
		registry.MustCallable("rm", s.Remove, registry.Params("name"),
			registry.Describe("remove a bookmark")),
	)
}

func (s *Servers) List() ([]store.Server, error) {
	return s.store.List()
}

// Current returns the selected server, or nil when none is selected.
func (s *Servers) Current() (any, error) {
	srv, ok, err := s.store.Current()
	if err != nil || !ok {
		return nil, err
	}
	return srv, nil
}

func (s *Servers) Add(name, address string) error {
	if err := http.ValidateURL(address); err != nil {
		return err
	}
	if err := s.store.Add(name, address); err != nil {
		return err
	}
	if _, ok, err := s.store.Current(); err != nil || ok {
		return err
	}
	return s.Use(name)
}

func (s *Servers) Use(name string) error {
	srv, err := s.store.Get(name)
	if err != nil {
		return err
	}
	if err := s.store.SetCurrent(name); err != nil {
		return err
	}
	s.setBaseURL(srv.Address)
	return nil
}

// Remove deletes a bookmark. Removing the selected server clears the base
// address.
func (s *Servers) Remove(name string) error {
	cur, ok, err := s.store.Current()
	if err != nil {
		return err
	}
	if err := s.store.Remove(name); err != nil {
		return err
	}
	if ok && cur.Name == name {
		s.setBaseURL("")
	}
	return nil
}

// Seed bookmarks servers that are not stored yet and selects preferred
// when given, otherwise restores the stored selection.
func (s *Servers) Seed(servers []store.Server, preferred string) error {
	for _, srv := range servers {
		err := s.store.Add(srv.Name, srv.Address)
		if err != nil && !errors.Is(err, store.ErrServerExists) {
			return fmt.Errorf("adding server %s: %w", srv.Name, err)
		}
	}
	if preferred != "" {
		return s.Use(preferred)
	}
	cur, ok, err := s.store.Current()
	if err != nil {
		return err
	}
	if ok {
		s.setBaseURL(cur.Address)
	}
	return nil
}

func (s *Servers) setBaseURL(address string) {
	s.engine.Configure(func(cfg *http.Config) {
		cfg.BaseURL = address
	})
}
