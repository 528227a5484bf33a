package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/stats"
)

// JSONOutput represents the complete JSON report of a script run
type JSONOutput struct {
	Summary  JSONSummary    `json:"summary"`
	Scripts  []JSONScript   `json:"scripts"`
	Requests *stats.Summary `json:"requests,omitempty"`
	Duration float64        `json:"duration"`
	Time     string         `json:"time"`
}

// JSONSummary counts scripts by outcome
type JSONSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// JSONScript represents one executed script
type JSONScript struct {
	File     string   `json:"file"`
	Passed   bool     `json:"passed"`
	Duration float64  `json:"duration"`
	Error    string   `json:"error,omitempty"`
	Causes   []string `json:"causes,omitempty"`
}

// JSONFormatter accumulates script results and writes them as one JSON
// document on Flush.
type JSONFormatter struct {
	writer  io.Writer
	results []JSONScript
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONScript, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

// AddScript records the outcome of running file.
func (f *JSONFormatter) AddScript(file string, duration time.Duration, err error) {
	script := JSONScript{
		File:     file,
		Passed:   err == nil,
		Duration: float64(duration.Milliseconds()),
	}
	if err != nil {
		script.Error = err.Error()
		prev := script.Error
		for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
			if msg := cause.Error(); msg != prev {
				script.Causes = append(script.Causes, msg)
				prev = msg
			}
		}
	}
	f.results = append(f.results, script)
}

// Reset drops accumulated results, for re-runs in watch mode.
func (f *JSONFormatter) Reset() {
	f.results = f.results[:0]
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration, requests *stats.Summary) error {
	var passed, failed int
	for _, s := range f.results {
		if s.Passed {
			passed++
		} else {
			failed++
		}
	}

	output := JSONOutput{
		Summary: JSONSummary{
			Total:  len(f.results),
			Passed: passed,
			Failed: failed,
		},
		Scripts:  f.results,
		Requests: requests,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
