package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/stats"
)

// JSONExporter writes a summary as a JSON document.
type JSONExporter struct {
	writer io.Writer
	pretty bool
	now    func() time.Time
}

// JSONOption is a functional option for JSONExporter
type JSONOption func(*JSONExporter)

// WithJSONWriter sets the output writer for JSON metrics
func WithJSONWriter(w io.Writer) JSONOption {
	return func(j *JSONExporter) {
		j.writer = w
	}
}

// WithJSONPretty enables pretty-printed JSON output
func WithJSONPretty(pretty bool) JSONOption {
	return func(j *JSONExporter) {
		j.pretty = pretty
	}
}

// NewJSONExporter creates a new JSON metrics exporter
func NewJSONExporter(opts ...JSONOption) *JSONExporter {
	j := &JSONExporter{
		writer: os.Stdout,
		pretty: true,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// JSONMetricsOutput is the complete JSON output structure
type JSONMetricsOutput struct {
	GeneratedAt string         `json:"generatedAt"`
	Metrics     *stats.Summary `json:"metrics"`
}

// Export writes summary to the configured writer.
func (j *JSONExporter) Export(summary *stats.Summary) error {
	out := JSONMetricsOutput{
		GeneratedAt: j.now().UTC().Format(time.RFC3339),
		Metrics:     summary,
	}

	encoder := json.NewEncoder(j.writer)
	if j.pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
