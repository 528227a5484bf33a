package http

import (
	"encoding/json"
	"strings"
	"time"
)

// Response is a finished exchange with the body read in full. Headers keep
// only the first value of each field, which is what the response
// assertions and captures look at.
type Response struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// BodyJSON decodes the body into generic JSON values: maps, slices,
// float64 numbers, strings, bools and nil.
func (r *Response) BodyJSON() (any, error) {
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Header looks up a header field by name, ignoring case.
func (r *Response) Header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// IsJSON reports whether the body is declared as JSON, including structured
// suffix types such as application/problem+json.
func (r *Response) IsJSON() bool {
	ct := strings.ToLower(r.Header("Content-Type"))
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}

// IsSuccess reports a 2xx status. The shell prints anything else as a
// failed request.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DurationMs is the round trip time in whole milliseconds, as shown by
// response.time.
func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
