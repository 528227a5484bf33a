package capture

import (
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/http"
	"github.com/tidwall/gjson"
)

// Source says which part of a response a subject reads.
type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
	SourceDuration
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	if resp.IsJSON() || gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

// IsJSON reports whether the body was parsed as JSON.
func (e *Extractor) IsJSON() bool {
	return e.bodyJSON.Exists()
}

// ParseSubject splits a subject such as "status", "header Content-Type",
// "body.items[0].id" or a bare body path into its source and path.
func ParseSubject(subject string) (Source, string) {
	subject = strings.TrimSpace(subject)
	switch {
	case subject == "status":
		return SourceStatus, ""
	case subject == "duration":
		return SourceDuration, ""
	case strings.HasPrefix(subject, "header"):
		name := strings.TrimPrefix(subject, "header")
		name = strings.TrimLeft(name, " .:")
		return SourceHeader, name
	case subject == "body":
		return SourceBody, ""
	case strings.HasPrefix(subject, "body."), strings.HasPrefix(subject, "body["):
		return SourceBody, strings.TrimPrefix(strings.TrimPrefix(subject, "body"), ".")
	default:
		return SourceBody, subject
	}
}

// Extract resolves a subject against the response.
func (e *Extractor) Extract(subject string) (any, bool) {
	source, path := ParseSubject(subject)
	switch source {
	case SourceStatus:
		return e.response.StatusCode, true
	case SourceDuration:
		return e.response.DurationMs(), true
	case SourceHeader:
		return e.extractFromHeader(path)
	default:
		return e.extractFromBody(path)
	}
}

// ConvertBracketNotation converts array bracket notation to gjson dot
// notation: "items[0].tags[1]" becomes "items.0.tags.1".
func ConvertBracketNotation(path string) string {
	return strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(ConvertBracketNotation(path))
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	if name == "" {
		return e.response.Headers, true
	}
	value := e.response.Header(name)
	if value == "" {
		return nil, false
	}
	return value, true
}

// Query runs a gjson path against the body. Unlike Extract it accepts the
// full gjson syntax (modifiers, queries such as items.#(id==2)).
func Query(resp *http.Response, path string) (any, bool) {
	if !gjson.ValidBytes(resp.Body) {
		return nil, false
	}
	result := gjson.GetBytes(resp.Body, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}
