package capture

import (
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/http"
	"github.com/stretchr/testify/assert"
)

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: 201,
		Status:     "201 Created",
		Headers:    map[string]string{"Content-Type": "application/json", "X-Request-Id": "abc"},
		Body:       []byte(body),
		Duration:   1500 * time.Microsecond,
	}
}

func TestExtractor_Extract(t *testing.T) {
	resp := jsonResponse(`{"id": 7, "items": [{"name": "a"}, {"name": "b", "tags": ["x", "y"]}]}`)
	e := NewExtractor(resp)

	tests := []struct {
		subject string
		want    any
		found   bool
	}{
		{"status", 201, true},
		{"header X-Request-Id", "abc", true},
		{"header x-request-id", "abc", true},
		{"header Missing", nil, false},
		{"body.id", float64(7), true},
		{"id", float64(7), true},
		{"items[1].name", "b", true},
		{"body.items[1].tags[0]", "x", true},
		{"items.#", float64(2), true},
		{"nope", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got, ok := e.Extract(tt.subject)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	d, ok := e.Extract("duration")
	assert.True(t, ok)
	assert.NotNil(t, d)
}

func TestExtractor_NonJSONBody(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Headers: map[string]string{"Content-Type": "text/plain"}, Body: []byte("plain text")}
	e := NewExtractor(resp)

	assert.False(t, e.IsJSON())
	got, ok := e.Extract("body")
	assert.True(t, ok)
	assert.Equal(t, "plain text", got)

	_, ok = e.Extract("body.id")
	assert.False(t, ok)
}

func TestParseSubject(t *testing.T) {
	tests := []struct {
		subject string
		source  Source
		path    string
	}{
		{"status", SourceStatus, ""},
		{"duration", SourceDuration, ""},
		{"header Content-Type", SourceHeader, "Content-Type"},
		{"header.ETag", SourceHeader, "ETag"},
		{"body", SourceBody, ""},
		{"body.data.id", SourceBody, "data.id"},
		{"body[0]", SourceBody, "[0]"},
		{"data.id", SourceBody, "data.id"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			source, path := ParseSubject(tt.subject)
			assert.Equal(t, tt.source, source)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestConvertBracketNotation(t *testing.T) {
	assert.Equal(t, "0.id", ConvertBracketNotation("[0].id"))
	assert.Equal(t, "items.0.tags.1", ConvertBracketNotation("items[0].tags[1]"))
	assert.Equal(t, "plain", ConvertBracketNotation("plain"))
}

func TestQuery(t *testing.T) {
	resp := jsonResponse(`{"users": [{"id": 1, "name": "ann"}, {"id": 2, "name": "bob"}]}`)

	got, ok := Query(resp, `users.#(id==2).name`)
	assert.True(t, ok)
	assert.Equal(t, "bob", got)

	_, ok = Query(resp, "users.9")
	assert.False(t, ok)

	_, ok = Query(&http.Response{Body: []byte("<html>")}, "a")
	assert.False(t, ok)
}
