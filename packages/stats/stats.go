// Package stats aggregates request latencies for the session so the stats
// built-in can report counts and percentiles.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range: 1us to 60s, 3 significant digits.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
	sigFigs      = 3
)

// Outcome classifies a finished request.
type Outcome int

const (
	Completed Outcome = iota
	Failed
	Cancelled
)

// Recorder collects per-session request metrics. It is safe for concurrent
// use: completions are recorded from transport goroutines.
type Recorder struct {
	mu sync.Mutex

	total     atomic.Int64
	success   atomic.Int64
	errors    atomic.Int64
	cancelled atomic.Int64

	histogram *hdrhistogram.Histogram
	byMethod  map[string]*hdrhistogram.Histogram
	statuses  map[int]int64

	start time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs),
		byMethod:  make(map[string]*hdrhistogram.Histogram),
		statuses:  make(map[int]int64),
		start:     time.Now(),
	}
}

// Record records one finished request. status is ignored unless the
// outcome is Completed; a completed request with a status of 400 or above
// counts as an error. Cancelled requests contribute no latency.
func (r *Recorder) Record(method string, status int, duration time.Duration, outcome Outcome) {
	r.total.Add(1)

	switch outcome {
	case Cancelled:
		r.cancelled.Add(1)
		return
	case Failed:
		r.errors.Add(1)
	case Completed:
		if status >= 400 {
			r.errors.Add(1)
		} else {
			r.success.Add(1)
		}
	}

	latencyUs := clamp(duration.Microseconds())

	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.histogram.RecordValue(latencyUs)

	h, ok := r.byMethod[method]
	if !ok {
		h = hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs)
		r.byMethod[method] = h
	}
	_ = h.RecordValue(latencyUs)

	if outcome == Completed {
		r.statuses[status]++
	}
}

func clamp(us int64) int64 {
	if us < minLatencyUs {
		return minLatencyUs
	}
	if us > maxLatencyUs {
		return maxLatencyUs
	}
	return us
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total.Store(0)
	r.success.Store(0)
	r.errors.Store(0)
	r.cancelled.Store(0)
	r.histogram.Reset()
	r.byMethod = make(map[string]*hdrhistogram.Histogram)
	r.statuses = make(map[int]int64)
	r.start = time.Now()
}

// Latency holds percentiles in milliseconds.
type Latency struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
}

// Summary is a point-in-time view of the recorder.
type Summary struct {
	Session   string             `json:"session"`
	Total     int64              `json:"total"`
	Success   int64              `json:"success"`
	Errors    int64              `json:"errors"`
	Cancelled int64              `json:"cancelled"`
	Latency   Latency            `json:"latency"`
	ByMethod  map[string]Latency `json:"byMethod,omitempty"`
	Statuses  map[string]int64   `json:"statuses,omitempty"`
}

// Summary returns the current statistics.
func (r *Recorder) Summary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Summary{
		Session:   time.Since(r.start).Round(time.Second).String(),
		Total:     r.total.Load(),
		Success:   r.success.Load(),
		Errors:    r.errors.Load(),
		Cancelled: r.cancelled.Load(),
		Latency:   latencyOf(r.histogram),
	}

	if len(r.byMethod) > 0 {
		s.ByMethod = make(map[string]Latency, len(r.byMethod))
		for method, h := range r.byMethod {
			s.ByMethod[method] = latencyOf(h)
		}
	}
	if len(r.statuses) > 0 {
		s.Statuses = make(map[string]int64, len(r.statuses))
		for code, n := range r.statuses {
			s.Statuses[fmt.Sprint(code)] = n
		}
	}
	return s
}

func latencyOf(h *hdrhistogram.Histogram) Latency {
	if h.TotalCount() == 0 {
		return Latency{}
	}
	return Latency{
		Min:  ms(h.Min()),
		Mean: round(h.Mean() / 1000),
		P50:  ms(h.ValueAtQuantile(50)),
		P90:  ms(h.ValueAtQuantile(90)),
		P95:  ms(h.ValueAtQuantile(95)),
		P99:  ms(h.ValueAtQuantile(99)),
		Max:  ms(h.Max()),
	}
}

func ms(us int64) float64 {
	return round(float64(us) / 1000)
}

func round(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// String renders a short human-readable report.
func (s *Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "requests: %d (ok %d, errors %d, cancelled %d) over %s\n",
		s.Total, s.Success, s.Errors, s.Cancelled, s.Session)
	fmt.Fprintf(&sb, "latency ms: min %.2f  p50 %.2f  p90 %.2f  p99 %.2f  max %.2f",
		s.Latency.Min, s.Latency.P50, s.Latency.P90, s.Latency.P99, s.Latency.Max)

	methods := make([]string, 0, len(s.ByMethod))
	for m := range s.ByMethod {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		l := s.ByMethod[m]
		fmt.Fprintf(&sb, "\n  %-7s p50 %.2f  p99 %.2f", m, l.P50, l.P99)
	}
	return sb.String()
}
