// Package metrics publishes the request statistics of a shell session in
// formats other tools can scrape or ingest.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/stats"
)

// Source yields the current statistics. *stats.Recorder satisfies it.
type Source interface {
	Summary() *stats.Summary
}

// Exporter writes a summary somewhere.
type Exporter interface {
	Export(summary *stats.Summary) error
}

// Format names an export format.
type Format string

const (
	FormatPrometheus Format = "prometheus"
	FormatJSON       Format = "json"
)

// FormatFor picks the format from a file extension: .json is JSON and
// everything else is Prometheus text.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatPrometheus
}

// WriteFile exports summary to path in the format its extension implies.
func WriteFile(path string, summary *stats.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create metrics file: %w", err)
	}

	var exporter Exporter
	switch FormatFor(path) {
	case FormatJSON:
		exporter = NewJSONExporter(WithJSONWriter(f))
	default:
		exporter = NewPrometheusExporter(WithPrometheusWriter(f))
	}

	if err := exporter.Export(summary); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
