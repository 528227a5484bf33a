// Package postman converts Postman v2.1 collections into hitshell scripts.
package postman

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"

	"github.com/abdul-hamid-achik/hitshell/packages/import/script"
)

// Expander expands ${VAR} references left in converted text.
type Expander interface {
	Resolve(input string) string
}

// Converter converts Postman collections to hitshell scripts.
type Converter struct {
	generateAssertions bool
	expander           Expander
}

// Option is a functional option for Converter.
type Option func(*Converter)

// WithAssertions configures whether to check the status after each request.
func WithAssertions(generate bool) Option {
	return func(c *Converter) {
		c.generateAssertions = generate
	}
}

// WithExpander expands variables the collection does not define.
func WithExpander(e Expander) Option {
	return func(c *Converter) {
		c.expander = e
	}
}

// NewConverter creates a new Postman converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		generateAssertions: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collection represents a Postman Collection v2.1 structure
type Collection struct {
	Info     Info   `json:"info"`
	Item     []Item `json:"item"`
	Variable []KV   `json:"variable,omitempty"`
}

type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      string `json:"schema"`
}

type Item struct {
	Name        string     `json:"name"`
	Request     *Request   `json:"request,omitempty"`
	Response    []Response `json:"response,omitempty"`
	Item        []Item     `json:"item,omitempty"` // For folders
	Description string     `json:"description,omitempty"`
}

type Request struct {
	Method string   `json:"method"`
	Header []Header `json:"header,omitempty"`
	Body   *Body    `json:"body,omitempty"`
	URL    URL      `json:"url"`
	Auth   *Auth    `json:"auth,omitempty"`
}

type Header struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

type Body struct {
	Mode       string      `json:"mode"`
	Raw        string      `json:"raw,omitempty"`
	URLEncoded []KV        `json:"urlencoded,omitempty"`
	Options    BodyOptions `json:"options,omitempty"`
}

type BodyOptions struct {
	Raw struct {
		Language string `json:"language,omitempty"`
	} `json:"raw,omitempty"`
}

type KV struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// URL accepts both the object form and a plain string.
type URL struct {
	Raw   string `json:"raw"`
	Query []KV   `json:"query,omitempty"`
}

func (u *URL) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		u.Raw = raw
		return nil
	}
	type plain URL
	return json.Unmarshal(data, (*plain)(u))
}

type Auth struct {
	Type   string `json:"type"`
	Bearer []KV   `json:"bearer,omitempty"`
	Basic  []KV   `json:"basic,omitempty"`
	APIKey []KV   `json:"apikey,omitempty"`
}

type Response struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Code   int    `json:"code"`
	Body   string `json:"body,omitempty"`
}

// {{name}}; dynamic variables such as {{$guid}} are left alone
var variablePattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*\}\}`)

// ConvertFile converts a collection file to a hitshell script.
func (c *Converter) ConvertFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return c.Convert(data)
}

// Convert converts collection JSON to a hitshell script.
func (c *Converter) Convert(data []byte) (string, error) {
	var collection Collection
	if err := json.Unmarshal(data, &collection); err != nil {
		return "", fmt.Errorf("failed to parse Postman collection: %w", err)
	}

	vars := make(map[string]string, len(collection.Variable))
	for _, kv := range collection.Variable {
		if !kv.Disabled {
			vars[kv.Key] = kv.Value
		}
	}

	s := &script.Script{Title: "Generated from Postman collection", Expect: c.generateAssertions}
	if collection.Info.Name != "" {
		s.Title += ": " + collection.Info.Name
	}

	conv := &converter{vars: vars, expander: c.expander}
	conv.items(s, collection.Item, "")
	return s.Render(), nil
}

type converter struct {
	vars     map[string]string
	expander Expander
}

func (c *converter) items(s *script.Script, items []Item, prefix string) {
	for _, item := range items {
		// If it's a folder (has nested items), recurse
		if len(item.Item) > 0 {
			if prefix != "" {
				c.items(s, item.Item, prefix+"/"+item.Name)
			} else {
				c.items(s, item.Item, item.Name)
			}
			continue
		}

		// Skip if no request
		if item.Request == nil {
			continue
		}

		name := item.Name
		if prefix != "" {
			name = prefix + " - " + name
		}
		req := c.request(item.Request)
		req.Name = name

		// A saved example response documents the expected status
		for _, resp := range item.Response {
			if resp.Code != 0 {
				req.Checks = []script.Check{{Subject: "status", Operator: "==", Expected: resp.Code}}
				break
			}
		}

		s.Requests = append(s.Requests, req)
	}
}

func (c *converter) request(r *Request) script.Request {
	req := script.Request{
		Method:  r.Method,
		URL:     c.convert(r.URL.Raw),
		Headers: make(map[string]string),
	}

	for _, h := range r.Header {
		if h.Disabled {
			continue
		}
		req.Headers[h.Key] = c.convert(h.Value)
	}

	if r.Body != nil {
		switch r.Body.Mode {
		case "raw":
			req.Body = c.convert(r.Body.Raw)
			if r.Body.Options.Raw.Language == "json" {
				req.ContentType = "application/json"
			}
		case "urlencoded":
			form := url.Values{}
			for _, kv := range r.Body.URLEncoded {
				if !kv.Disabled {
					form.Add(kv.Key, c.convert(kv.Value))
				}
			}
			if len(form) > 0 {
				req.Body = form.Encode()
				req.ContentType = "application/x-www-form-urlencoded"
			}
		}
	}

	if r.Auth != nil {
		c.auth(&req, r.Auth)
	}
	return req
}

func (c *converter) auth(req *script.Request, auth *Auth) {
	switch auth.Type {
	case "bearer":
		if token := lookup(auth.Bearer, "token"); token != "" {
			req.BearerToken = c.convert(token)
		}
	case "basic":
		if user := lookup(auth.Basic, "username"); user != "" {
			req.BasicAuth = &script.Credentials{
				Username: c.convert(user),
				Password: c.convert(lookup(auth.Basic, "password")),
			}
		}
	case "apikey":
		key := lookup(auth.APIKey, "key")
		if key == "" {
			return
		}
		value := c.convert(lookup(auth.APIKey, "value"))
		if lookup(auth.APIKey, "in") == "query" {
			req.Query = append(req.Query, script.QueryParam{Name: key, Value: value})
			return
		}
		req.Headers[key] = value
	}
}

func lookup(kvs []KV, key string) string {
	for _, kv := range kvs {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// convert inlines collection variables; the rest become ${name} and are
// handed to the expander, if any.
func (c *converter) convert(s string) string {
	s = variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		if val, ok := c.vars[name]; ok {
			return val
		}
		return "${" + name + "}"
	})
	if c.expander != nil {
		s = c.expander.Resolve(s)
	}
	return s
}
