package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/abdul-hamid-achik/hitshell/packages/stats"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// PrometheusExporter exports metrics in Prometheus text format
type PrometheusExporter struct {
	writer    io.Writer
	namespace string
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusWriter sets the output writer for Prometheus metrics
func WithPrometheusWriter(w io.Writer) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.writer = w
	}
}

// WithNamespace prefixes every metric name. The default is "hitshell".
func WithNamespace(ns string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.namespace = ns
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{
		writer:    io.Discard,
		namespace: "hitshell",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export writes summary to the configured writer.
func (p *PrometheusExporter) Export(summary *stats.Summary) error {
	return p.write(p.writer, summary)
}

// Handler serves the live statistics of source at any path it is mounted on.
func (p *PrometheusExporter) Handler(source Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_ = p.write(w, source.Summary())
	})
}

// Server returns an HTTP server exposing source on /metrics.
func (p *PrometheusExporter) Server(addr string, source Source) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler(source))
	return &http.Server{Addr: addr, Handler: mux}
}

func (p *PrometheusExporter) write(w io.Writer, s *stats.Summary) error {
	ew := &errWriter{w: w}
	name := func(n string) string { return p.namespace + "_" + n }

	ew.header(name("requests_total"), "counter", "Requests sent by the shell, by outcome")
	ew.printf("%s{outcome=\"success\"} %d\n", name("requests_total"), s.Success)
	ew.printf("%s{outcome=\"error\"} %d\n", name("requests_total"), s.Errors)
	ew.printf("%s{outcome=\"cancelled\"} %d\n\n", name("requests_total"), s.Cancelled)

	ew.header(name("responses_total"), "counter", "Completed responses by HTTP status code")
	codes := make([]string, 0, len(s.Statuses))
	for code := range s.Statuses {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		a, _ := strconv.Atoi(codes[i])
		b, _ := strconv.Atoi(codes[j])
		return a < b
	})
	for _, code := range codes {
		ew.printf("%s{status=%q} %d\n", name("responses_total"), sanitizeLabel(code), s.Statuses[code])
	}
	ew.printf("\n")

	ew.header(name("request_duration_ms"), "gauge", "Request latency in milliseconds")
	writeLatency(ew, name("request_duration_ms"), "", s.Latency)

	if len(s.ByMethod) > 0 {
		methods := make([]string, 0, len(s.ByMethod))
		for m := range s.ByMethod {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		ew.printf("\n")
		ew.header(name("method_duration_ms"), "gauge", "Request latency in milliseconds per HTTP method")
		for _, m := range methods {
			writeLatency(ew, name("method_duration_ms"), fmt.Sprintf("method=%q,", sanitizeLabel(m)), s.ByMethod[m])
		}
	}
	return ew.err
}

func writeLatency(ew *errWriter, metric, labels string, l stats.Latency) {
	quantiles := []struct {
		q string
		v float64
	}{
		{"0", l.Min},
		{"0.5", l.P50},
		{"0.9", l.P90},
		{"0.95", l.P95},
		{"0.99", l.P99},
		{"1", l.Max},
	}
	for _, q := range quantiles {
		ew.printf("%s{%squantile=\"%s\"} %.2f\n", metric, labels, q.q, q.v)
	}
}

// sanitizeLabel keeps label values on a single line.
func sanitizeLabel(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// errWriter remembers the first write error so callers check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *errWriter) header(name, kind, help string) {
	e.printf("# HELP %s %s\n", name, help)
	e.printf("# TYPE %s %s\n", name, kind)
}
