// Package openapi converts OpenAPI 3 documents into hitshell scripts with
// one request per operation.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/import/script"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// ServerName is the bookmark the generated script adds for the document's
// base URL.
const ServerName = "api"

// maxDepth bounds sample generation for recursive schemas.
const maxDepth = 5

var methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

type Converter struct {
	baseURL  string
	tags     []string
	checks   bool
	warnings io.Writer
}

type Option func(*Converter)

// WithBaseURL replaces the first server listed in the document.
func WithBaseURL(u string) Option {
	return func(c *Converter) { c.baseURL = u }
}

// WithTags keeps only operations carrying at least one of tags.
func WithTags(tags []string) Option {
	return func(c *Converter) { c.tags = tags }
}

// WithTests controls whether response.expect statements are generated.
func WithTests(generate bool) Option {
	return func(c *Converter) { c.checks = generate }
}

// WithWarnings sets where validation problems in the document are
// reported. They are dropped by default.
func WithWarnings(w io.Writer) Option {
	return func(c *Converter) { c.warnings = w }
}

func NewConverter(opts ...Option) *Converter {
	c := &Converter{checks: true, warnings: io.Discard}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConvertFile loads a document from a file or an http(s) URL.
func (c *Converter) ConvertFile(location string) (string, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	var (
		doc *openapi3.T
		err error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		var u *url.URL
		if u, err = url.Parse(location); err == nil {
			doc, err = loader.LoadFromURI(u)
		}
	} else {
		doc, err = loader.LoadFromFile(location)
	}
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", location, err)
	}
	return c.Convert(doc)
}

// ConvertData converts a document given as JSON or YAML.
func (c *Converter) ConvertData(data []byte) (string, error) {
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return "", fmt.Errorf("loading document: %w", err)
	}
	return c.Convert(doc)
}

// Convert renders doc. A document that fails validation is still converted.
func (c *Converter) Convert(doc *openapi3.T) (string, error) {
	if err := doc.Validate(context.Background()); err != nil {
		fmt.Fprintf(c.warnings, "warning: %v\n", err)
	}

	s := &script.Script{Title: "Generated from OpenAPI spec", Expect: c.checks}
	if doc.Info != nil && doc.Info.Title != "" {
		s.Title += ": " + doc.Info.Title
		if doc.Info.Version != "" {
			s.Title += " (" + doc.Info.Version + ")"
		}
	}

	base := c.baseURL
	if base == "" {
		base = "http://localhost:3000"
		if len(doc.Servers) > 0 && doc.Servers[0].URL != "" {
			base = doc.Servers[0].URL
		}
	}
	s.Servers = []script.Server{{Name: ServerName, Address: strings.TrimSuffix(base, "/")}}

	if doc.Paths == nil {
		return s.Render(), nil
	}
	items := doc.Paths.Map()
	for _, path := range slices.Sorted(maps.Keys(items)) {
		item := items[path]
		if item == nil {
			continue
		}
		for _, method := range methods {
			op := item.GetOperation(method)
			if op == nil || !c.selected(op) {
				continue
			}
			s.Requests = append(s.Requests, c.request(path, method, op, item.Parameters))
		}
	}
	return s.Render(), nil
}

func (c *Converter) selected(op *openapi3.Operation) bool {
	if len(c.tags) == 0 {
		return true
	}
	return slices.ContainsFunc(op.Tags, func(tag string) bool {
		return slices.Contains(c.tags, tag)
	})
}

func (c *Converter) request(path, method string, op *openapi3.Operation, shared openapi3.Parameters) script.Request {
	req := script.Request{
		Name:    op.Summary,
		Method:  method,
		URL:     path,
		Headers: map[string]string{},
	}
	if req.Name == "" {
		req.Name = op.OperationID
	}
	if req.Name == "" {
		req.Name = strings.ToLower(method) + " " + path
	}

	for _, ref := range append(slices.Clone(shared), op.Parameters...) {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		switch p.In {
		case openapi3.ParameterInPath:
			req.URL = strings.ReplaceAll(req.URL, "{"+p.Name+"}", url.PathEscape(paramValue(p)))
		case openapi3.ParameterInQuery:
			req.Query = append(req.Query, script.QueryParam{Name: p.Name, Value: paramValue(p)})
		case openapi3.ParameterInHeader:
			req.Headers[p.Name] = paramValue(p)
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		req.Body, req.ContentType = requestBody(op.RequestBody.Value)
	}
	if c.checks {
		req.Checks = checks(op)
	}
	return req
}

// paramValue picks an example for p, falling back to a ${name}
// placeholder for the user to fill in.
func paramValue(p *openapi3.Parameter) string {
	if p.Example != nil {
		return fmt.Sprint(p.Example)
	}
	if p.Schema == nil || p.Schema.Value == nil {
		return "${" + p.Name + "}"
	}
	switch v := sample(p.Schema.Value, p.Name, 0).(type) {
	case nil:
		return "${" + p.Name + "}"
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// sample builds an example value for schema: its example or first enum
// value when declared, otherwise a placeholder for its type. Objects and
// arrays nest up to maxDepth. UUIDs are derived from name so repeated
// imports produce the same script.
func sample(schema *openapi3.Schema, name string, depth int) any {
	if schema == nil || depth > maxDepth {
		return nil
	}
	if schema.Example != nil {
		return schema.Example
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[0]
	}

	switch {
	case schema.Type.Is(openapi3.TypeString):
		switch schema.Format {
		case "date":
			return "2024-01-01"
		case "date-time":
			return "2024-01-01T00:00:00Z"
		case "email":
			return "user@example.com"
		case "uuid":
			return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
		}
		return "example"
	case schema.Type.Is(openapi3.TypeInteger):
		if schema.Min != nil {
			return int64(*schema.Min)
		}
		return 1
	case schema.Type.Is(openapi3.TypeNumber):
		if schema.Min != nil {
			return *schema.Min
		}
		return json.Number("1.0")
	case schema.Type.Is(openapi3.TypeBoolean):
		return true
	case schema.Type.Is(openapi3.TypeArray):
		if schema.Items == nil || schema.Items.Value == nil {
			return []any{}
		}
		return []any{sample(schema.Items.Value, name, depth+1)}
	case schema.Type.Is(openapi3.TypeObject):
		obj := map[string]any{}
		for prop, ref := range schema.Properties {
			if ref == nil {
				obj[prop] = nil
				continue
			}
			obj[prop] = sample(ref.Value, prop, depth+1)
		}
		return obj
	}
	return nil
}

// requestBody returns a sample body and its content type, preferring JSON
// over form encoding.
func requestBody(body *openapi3.RequestBody) (string, string) {
	types := slices.Sorted(maps.Keys(body.Content))

	for _, ct := range types {
		if media := body.Content[ct]; strings.Contains(ct, "json") && media.Schema != nil {
			v := sample(media.Schema.Value, "body", 0)
			if v == nil {
				return "{}", "application/json"
			}
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return "{}", "application/json"
			}
			return string(data), "application/json"
		}
	}

	for _, ct := range types {
		media := body.Content[ct]
		if !strings.Contains(ct, "form") || media.Schema == nil || media.Schema.Value == nil {
			continue
		}
		form := url.Values{}
		for prop, ref := range media.Schema.Value.Properties {
			value := "example"
			if ref != nil && ref.Value != nil && ref.Value.Example != nil {
				value = fmt.Sprint(ref.Value.Example)
			}
			form.Set(prop, value)
		}
		return form.Encode(), "application/x-www-form-urlencoded"
	}
	return "", ""
}

// checks expects the lowest documented 2xx status, and a JSON content type
// when that response declares one. Range codes such as 2XX are skipped.
func checks(op *openapi3.Operation) []script.Check {
	if op.Responses == nil {
		return nil
	}
	responses := op.Responses.Map()
	for _, code := range slices.Sorted(maps.Keys(responses)) {
		ref := responses[code]
		status, err := strconv.Atoi(code)
		if err != nil || status < 200 || status > 299 || ref == nil || ref.Value == nil {
			continue
		}
		out := []script.Check{{Subject: "status", Operator: "==", Expected: status}}
		for ct := range ref.Value.Content {
			if strings.Contains(ct, "json") {
				out = append(out, script.Check{Subject: "header Content-Type", Operator: "contains", Expected: "json"})
				break
			}
		}
		return out
	}
	return []script.Check{{Subject: "status", Operator: "==", Expected: 200}}
}
