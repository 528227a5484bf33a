package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderRecord(t *testing.T) {
	r := NewRecorder()

	r.Record("GET", 200, 100*time.Millisecond, Completed)
	r.Record("GET", 200, 150*time.Millisecond, Completed)
	r.Record("POST", 404, 200*time.Millisecond, Completed)
	r.Record("GET", 0, 50*time.Millisecond, Failed)
	r.Record("GET", 0, 0, Cancelled)

	s := r.Summary()
	assert.Equal(t, int64(5), s.Total)
	assert.Equal(t, int64(2), s.Success)
	assert.Equal(t, int64(2), s.Errors)
	assert.Equal(t, int64(1), s.Cancelled)
	assert.Equal(t, map[string]int64{"200": 2, "404": 1}, s.Statuses)

	require.Contains(t, s.ByMethod, "GET")
	require.Contains(t, s.ByMethod, "POST")
	assert.InDelta(t, 50, s.Latency.Min, 1)
	assert.InDelta(t, 200, s.Latency.Max, 1)
	assert.InDelta(t, 200, s.ByMethod["POST"].P50, 1)
}

func TestRecorderEmpty(t *testing.T) {
	s := NewRecorder().Summary()
	assert.Equal(t, int64(0), s.Total)
	assert.Equal(t, Latency{}, s.Latency)
	assert.Nil(t, s.ByMethod)
	assert.Contains(t, s.String(), "requests: 0")
}

func TestRecorderClampsLatency(t *testing.T) {
	r := NewRecorder()
	r.Record("GET", 200, 0, Completed)
	r.Record("GET", 200, 2*time.Minute, Completed)

	s := r.Summary()
	assert.Equal(t, 0.0, s.Latency.Min)
	assert.InDelta(t, 60000, s.Latency.Max, 60)
}

func TestRecorderReset(t *testing.T) {
	r := NewRecorder()
	r.Record("GET", 200, time.Millisecond, Completed)
	r.Reset()

	s := r.Summary()
	assert.Equal(t, int64(0), s.Total)
	assert.Empty(t, s.ByMethod)
}

func TestRecorderConcurrent(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record("GET", 200, 10*time.Millisecond, Completed)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(20), r.Summary().Success)
}

func TestSummaryString(t *testing.T) {
	r := NewRecorder()
	r.Record("DELETE", 204, 5*time.Millisecond, Completed)
	out := r.Summary().String()
	assert.Contains(t, out, "requests: 1 (ok 1, errors 0, cancelled 0)")
	assert.Contains(t, out, "DELETE")
}
