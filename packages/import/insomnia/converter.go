// Package insomnia converts Insomnia v4 exports into hitshell scripts.
package insomnia

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/import/script"
)

// Expander expands ${VAR} references left in converted text.
type Expander interface {
	Resolve(input string) string
}

// Converter converts Insomnia exports to hitshell scripts.
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

// WithExpander expands variables the export's base environment does not
// define, typically from the process environment and a .env file.
func WithExpander(e Expander) Option {
	return func(c *Converter) {
		c.expander = e
	}
}

// NewConverter creates a new Insomnia converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		generateAssertions: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export represents an Insomnia export file.
type Export struct {
	Type         string     `json:"_type"`
	ExportFormat int        `json:"__export_format"`
	Resources    []Resource `json:"resources"`
}

// Resource represents an Insomnia resource (request, folder, environment, etc).
type Resource struct {
	ID             string         `json:"_id"`
	Type           string         `json:"_type"`
	ParentID       string         `json:"parentId"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Method         string         `json:"method,omitempty"`
	URL            string         `json:"url,omitempty"`
	Headers        []Header       `json:"headers,omitempty"`
	Body           *Body          `json:"body,omitempty"`
	Parameters     []Parameter    `json:"parameters,omitempty"`
	Authentication *Auth          `json:"authentication,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// Header represents an Insomnia header.
type Header struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Body represents an Insomnia request body.
type Body struct {
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Parameter represents an Insomnia query parameter.
type Parameter struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Auth represents Insomnia authentication.
type Auth struct {
	Type     string `json:"type"`
	Disabled bool   `json:"disabled,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// {{ _.name }} and {{ name }}
var variablePattern = regexp.MustCompile(`\{\{\s*(?:_\.)?([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// ConvertFile converts an Insomnia export file to a hitshell script.
func (c *Converter) ConvertFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return c.Convert(data)
}

// Convert converts Insomnia export JSON to a hitshell script.
func (c *Converter) Convert(data []byte) (string, error) {
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return "", fmt.Errorf("failed to parse Insomnia export: %w", err)
	}

	requests := make([]Resource, 0)
	folders := make(map[string]Resource)
	environments := make(map[string]Resource)

	for _, res := range export.Resources {
		switch res.Type {
		case "request":
			requests = append(requests, res)
		case "request_group":
			folders[res.ID] = res
		case "environment":
			environments[res.ID] = res
		}
	}

	v := &variables{vars: baseEnvironment(environments), expander: c.expander}
	s := &script.Script{
		Title:  "Generated from Insomnia export",
		Expect: c.generateAssertions,
	}
	for _, res := range requests {
		s.Requests = append(s.Requests, c.request(res, folders, v))
	}

	return s.Render(), nil
}

func (c *Converter) request(res Resource, folders map[string]Resource, v *variables) script.Request {
	name := res.Name
	if folderPath := c.getFolderPath(res.ParentID, folders); folderPath != "" {
		name = folderPath + " - " + name
	}

	req := script.Request{
		Name:    name,
		Method:  res.Method,
		URL:     v.convert(res.URL),
		Headers: make(map[string]string),
	}

	for _, param := range res.Parameters {
		if param.Disabled {
			continue
		}
		req.Query = append(req.Query, script.QueryParam{Name: param.Name, Value: v.convert(param.Value)})
	}

	for _, h := range res.Headers {
		if h.Disabled {
			continue
		}
		req.Headers[h.Name] = v.convert(h.Value)
	}

	if res.Body != nil && res.Body.Text != "" {
		req.Body = v.convert(res.Body.Text)
		req.ContentType = res.Body.MimeType
	}

	if auth := res.Authentication; auth != nil && !auth.Disabled {
		switch auth.Type {
		case "basic":
			if auth.Username != "" {
				req.BasicAuth = &script.Credentials{
					Username: v.convert(auth.Username),
					Password: v.convert(auth.Password),
				}
			}
		case "bearer":
			if auth.Token != "" {
				req.BearerToken = v.convert(auth.Token)
			}
		}
	}

	return req
}

func (c *Converter) getFolderPath(parentID string, folders map[string]Resource) string {
	var path []string
	currentID := parentID

	for {
		folder, exists := folders[currentID]
		if !exists {
			break
		}
		path = append([]string{folder.Name}, path...)
		currentID = folder.ParentID
	}

	return strings.Join(path, "/")
}

// baseEnvironment returns the string values of the environments whose
// parent is not itself an environment. Sub-environments are skipped since
// the export does not record which one is active.
func baseEnvironment(environments map[string]Resource) map[string]string {
	ids := make([]string, 0, len(environments))
	for id, res := range environments {
		if _, sub := environments[res.ParentID]; !sub {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	vars := make(map[string]string)
	for _, id := range ids {
		for k, val := range environments[id].Data {
			switch val := val.(type) {
			case string:
				vars[k] = val
			case float64, bool:
				vars[k] = fmt.Sprint(val)
			}
		}
	}
	return vars
}

type variables struct {
	vars     map[string]string
	expander Expander
}

// convert replaces Insomnia template references with environment values.
// References the environment does not define become ${name} and are handed
// to the expander, if any.
func (v *variables) convert(s string) string {
	s = variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		if val, ok := v.vars[name]; ok {
			return val
		}
		return "${" + name + "}"
	})
	if v.expander != nil {
		s = v.expander.Resolve(s)
	}
	return s
}
