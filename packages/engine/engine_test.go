package engine

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
	hshttp "github.com/abdul-hamid-achik/hitshell/packages/http"
	"github.com/abdul-hamid-achik/hitshell/packages/output"
	"github.com/abdul-hamid-achik/hitshell/packages/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, baseURL string, opts ...Option) (*Engine, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	console := output.NewConsole(output.WithWriter(&buf), output.WithNoColor(true))
	opts = append([]Option{WithConsole(console)}, opts...)
	return New(hshttp.NewClient(hshttp.WithBaseURL(baseURL)), opts...), &buf
}

func TestDispatch_ReturnsBeforeResponse(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"up"}`))
	}))
	defer server.Close()

	e, buf := newTestEngine(t, server.URL)
	reprompts := 0
	e.Console().SetReprompt(func(w io.Writer) { reprompts++ })

	result, err := e.Dispatch(context.Background(), hshttp.NewRequest("GET", "/status"))
	require.NoError(t, err)
	assert.Same(t, value.NoOutput, result)
	assert.True(t, e.CancelStack().RequestPending())
	assert.Nil(t, e.LastResponse())

	close(release)
	e.Wait()

	assert.False(t, e.CancelStack().RequestPending())
	assert.Equal(t, 0, e.CancelStack().Len())
	assert.Contains(t, buf.String(), "Request Completed: 200 OK\n")
	assert.Contains(t, buf.String(), "{\n  \"status\": \"up\"\n}")
	assert.Equal(t, 1, reprompts)
	require.NotNil(t, e.LastResponse())
	assert.Equal(t, 200, e.LastResponse().StatusCode)
}

func TestDispatch_FailedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	e, buf := newTestEngine(t, server.URL)
	_, err := e.Dispatch(context.Background(), hshttp.NewRequest("GET", "/missing"))
	require.NoError(t, err)
	e.Wait()

	assert.Contains(t, buf.String(), "Request Failed: 404 Not Found\n")
	assert.Contains(t, buf.String(), "nope")
	summary := e.Stats().Summary()
	assert.Equal(t, int64(1), summary.Errors)
}

func TestDispatch_ConfigurationFault(t *testing.T) {
	e, buf := newTestEngine(t, "")

	for i := 0; i < 2; i++ {
		_, err := e.Dispatch(context.Background(), hshttp.NewRequest("GET", "/status"))
		var cfgErr *hshttp.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "invalid URI, you might not have selected a server", err.Error())
	}
	assert.Equal(t, 0, e.CancelStack().Len())
	assert.Empty(t, buf.String())
}

func TestDispatch_Interrupt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	e, buf := newTestEngine(t, server.URL)
	_, err := e.Dispatch(context.Background(), hshttp.NewRequest("GET", "/hang"))
	require.NoError(t, err)

	assert.True(t, e.Interrupt())
	e.Wait()

	assert.Contains(t, buf.String(), "Request Cancelled")
	assert.Equal(t, int64(1), e.Stats().Summary().Cancelled)
	assert.False(t, e.Interrupt())
}

func TestDispatch_WaitsForInFlightRequest(t *testing.T) {
	release := make(chan struct{})
	hits := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.URL.Path
		if r.URL.Path == "/first" {
			<-release
		}
	}))
	defer server.Close()

	e, _ := newTestEngine(t, server.URL)
	_, err := e.Dispatch(context.Background(), hshttp.NewRequest("GET", "/first"))
	require.NoError(t, err)
	assert.Equal(t, "/first", <-hits)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = e.Dispatch(ctx, hshttp.NewRequest("GET", "/second"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	e.Wait()

	_, err = e.Dispatch(context.Background(), hshttp.NewRequest("GET", "/second"))
	require.NoError(t, err)
	e.Wait()
	assert.Equal(t, "/second", <-hits)
}

func TestPreprocessors_OrderAndReplacement(t *testing.T) {
	got := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("X-Trace")
	}))
	defer server.Close()

	e, _ := newTestEngine(t, server.URL)
	appendTrace := func(s string) Preprocessor {
		return func(req *hshttp.Request) {
			v, _ := req.Header("X-Trace")
			req.SetHeader("X-Trace", v+s)
		}
	}

	e.RegisterPreprocessor("a", appendTrace("a"))
	e.RegisterPreprocessor("b", appendTrace("b"))
	e.RegisterPreprocessor("a", appendTrace("A"))
	assert.Equal(t, []string{"b", "a"}, e.Preprocessors())

	_, err := e.Dispatch(context.Background(), hshttp.NewRequest("GET", "/"))
	require.NoError(t, err)
	e.Wait()
	assert.Equal(t, "bA", <-got)

	assert.True(t, e.UnregisterPreprocessor("b"))
	assert.False(t, e.UnregisterPreprocessor("b"))
	assert.Equal(t, []string{"a"}, e.Preprocessors())
}

func TestCancelHandlers(t *testing.T) {
	e, _ := newTestEngine(t, "")
	var order []string

	first, err := e.AddCancelHandler("first", func() { order = append(order, "first") })
	require.NoError(t, err)
	_, err = e.AddCancelHandler("second", func() { order = append(order, "second") })
	require.NoError(t, err)

	assert.True(t, e.Interrupt())
	assert.Equal(t, []string{"second"}, order)

	require.NoError(t, e.RemoveCancelHandler(first))
	assert.False(t, e.Interrupt())
	assert.Equal(t, []string{"second"}, order)
}

func TestCancelHandlers_RequestPending(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()

	e, _ := newTestEngine(t, server.URL)
	handler, err := e.AddCancelHandler("handler", func() {})
	require.NoError(t, err)

	_, err = e.Dispatch(context.Background(), hshttp.NewRequest("GET", "/"))
	require.NoError(t, err)

	_, err = e.AddCancelHandler("late", func() {})
	assert.ErrorIs(t, err, ErrRequestPending)
	assert.ErrorIs(t, e.RemoveCancelHandler(handler), ErrRequestPending)

	close(release)
	e.Wait()
	require.NoError(t, e.RemoveCancelHandler(handler))
	assert.Equal(t, 0, e.CancelStack().Len())
}

func TestRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	e, _ := newTestEngine(t, server.URL, WithRateLimit(0.001))
	_, err := e.Dispatch(context.Background(), hshttp.NewRequest("GET", "/"))
	require.NoError(t, err)
	e.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = e.Dispatch(ctx, hshttp.NewRequest("GET", "/"))
	assert.Error(t, err)
	assert.Equal(t, 0, e.CancelStack().Len())
	assert.Equal(t, int64(1), e.Stats().Summary().Total)
}

func TestStatsOutcomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	recorder := stats.NewRecorder()
	e, buf := newTestEngine(t, server.URL, WithStats(recorder))
	_, err := e.Dispatch(context.Background(), hshttp.NewRequest("DELETE", "/items/1"))
	require.NoError(t, err)
	e.Wait()

	assert.Equal(t, "Request Completed: 204 No Content\n", buf.String())
	summary := recorder.Summary()
	assert.Equal(t, int64(1), summary.Success)
	assert.Contains(t, summary.ByMethod, "DELETE")
}
