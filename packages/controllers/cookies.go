package controllers

import (
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/engine"
)

var errNoJar = errors.New("cookies are disabled")

// Cookies inspects and edits the shared cookie jar.
type Cookies struct {
	engine *engine.Engine
}

func NewCookies(e *engine.Engine) *Cookies {
	return &Cookies{engine: e}
}

func (c *Cookies) Name() string { return "cookies" }

func (c *Cookies) Namespace() *registry.Namespace {
	return registry.NewNamespace(
		registry.MustCallable("list", c.List, registry.Params("domain"),
			registry.Describe("cookie header sent to domain")),
		registry.MustCallable("add", c.Add, registry.Params("domain", "name", "value"),
			registry.Describe("add a cookie for domain")),
		registry.MustCallable("set", c.SetCookie, registry.Params("domain", "cookie"),
			registry.Describe("store a Set-Cookie header value for domain")),
	)
}

func (c *Cookies) jar() (nethttp.CookieJar, error) {
	jar := c.engine.Client().Config().Jar
	if jar == nil {
		return nil, errNoJar
	}
	return jar, nil
}

// List returns the Cookie header the jar would send to domain.
func (c *Cookies) List(domain string) (string, error) {
	jar, err := c.jar()
	if err != nil {
		return "", err
	}
	u, err := domainURL(domain)
	if err != nil {
		return "", err
	}
	return cookieHeader(jar.Cookies(u)), nil
}

func (c *Cookies) Add(domain, name, value string) (string, error) {
	return c.store(domain, &nethttp.Cookie{Name: name, Value: value, Path: "/"})
}

// SetCookie parses a Set-Cookie header value and stores it.
func (c *Cookies) SetCookie(domain, header string) (string, error) {
	cookie, err := nethttp.ParseSetCookie(header)
	if err != nil {
		return "", fmt.Errorf("parsing cookie: %w", err)
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return c.store(domain, cookie)
}

func (c *Cookies) store(domain string, cookie *nethttp.Cookie) (string, error) {
	jar, err := c.jar()
	if err != nil {
		return "", err
	}
	u, err := domainURL(domain)
	if err != nil {
		return "", err
	}
	jar.SetCookies(u, []*nethttp.Cookie{cookie})
	return cookieHeader(jar.Cookies(u)), nil
}

// domainURL accepts a host name or a full URL.
func domainURL(domain string) (*url.URL, error) {
	raw := domain
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid domain %q: %w", domain, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid domain %q", domain)
	}
	return u, nil
}

func cookieHeader(cookies []*nethttp.Cookie) string {
	parts := make([]string, len(cookies))
	for i, ck := range cookies {
		parts[i] = ck.Name + "=" + ck.Value
	}
	return strings.Join(parts, "; ")
}
