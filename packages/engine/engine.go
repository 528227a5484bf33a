// Package engine dispatches HTTP requests issued by shell commands. A
// request is sent in the background while the prompt stays responsive; its
// outcome is rendered to the console when it completes, and an interrupt
// aborts it through the cancel stack.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
	"github.com/abdul-hamid-achik/hitshell/packages/http"
	"github.com/abdul-hamid-achik/hitshell/packages/logutil"
	"github.com/abdul-hamid-achik/hitshell/packages/output"
	"github.com/abdul-hamid-achik/hitshell/packages/stats"
	"github.com/fatih/color"
	"golang.org/x/time/rate"
)

var logger = logutil.GetLogger("[engine] ")

// Preprocessor mutates every outgoing request before it is sent.
type Preprocessor func(req *http.Request)

type keyedPreprocessor struct {
	key string
	fn  Preprocessor
}

type Engine struct {
	client  *http.Client
	console *output.Console
	stats   *stats.Recorder
	cancels *CancelStack
	limiter *rate.Limiter

	mu            sync.Mutex
	preprocessors []keyedPreprocessor

	// slot holds a token while a request is in flight.
	slot     chan struct{}
	inflight sync.WaitGroup

	lastMu sync.RWMutex
	last   *http.Response
}

type Option func(*Engine)

func WithConsole(c *output.Console) Option {
	return func(e *Engine) {
		e.console = c
	}
}

func WithStats(r *stats.Recorder) Option {
	return func(e *Engine) {
		e.stats = r
	}
}

func WithCancelStack(s *CancelStack) Option {
	return func(e *Engine) {
		e.cancels = s
	}
}

// WithRateLimit spaces requests to at most perSecond per second. Zero or
// less disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(e *Engine) {
		if perSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func New(client *http.Client, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		slot:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.console == nil {
		e.console = output.NewConsole()
	}
	if e.stats == nil {
		e.stats = stats.NewRecorder()
	}
	if e.cancels == nil {
		e.cancels = NewCancelStack()
	}
	return e
}

func (e *Engine) Client() *http.Client {
	return e.client
}

func (e *Engine) Console() *output.Console {
	return e.console
}

func (e *Engine) Stats() *stats.Recorder {
	return e.stats
}

func (e *Engine) CancelStack() *CancelStack {
	return e.cancels
}

// Configure mutates the shared client configuration.
func (e *Engine) Configure(fn func(*http.Config)) {
	e.client.Configure(fn)
}

// RegisterPreprocessor appends fn under key. A key registered before is
// removed first, so the new entry runs last.
func (e *Engine) RegisterPreprocessor(key string, fn Preprocessor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeLocked(key)
	e.preprocessors = append(e.preprocessors, keyedPreprocessor{key: key, fn: fn})
}

// UnregisterPreprocessor removes key and reports whether it was registered.
func (e *Engine) UnregisterPreprocessor(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeLocked(key)
}

func (e *Engine) removeLocked(key string) bool {
	for i, p := range e.preprocessors {
		if p.key == key {
			e.preprocessors = append(e.preprocessors[:i], e.preprocessors[i+1:]...)
			return true
		}
	}
	return false
}

// Preprocessors returns the registered keys in application order.
func (e *Engine) Preprocessors() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, len(e.preprocessors))
	for i, p := range e.preprocessors {
		keys[i] = p.key
	}
	return keys
}

// Preprocess runs every registered preprocessor on req in order.
func (e *Engine) Preprocess(req *http.Request) {
	e.mu.Lock()
	pre := make([]keyedPreprocessor, len(e.preprocessors))
	copy(pre, e.preprocessors)
	e.mu.Unlock()

	for _, p := range pre {
		p.fn(req)
	}
}

// AddCancelHandler pushes fn onto the cancel stack.
func (e *Engine) AddCancelHandler(name string, fn func()) (*CancelEntry, error) {
	return e.cancels.Push(name, fn)
}

// RemoveCancelHandler takes a handler off the cancel stack. It fails while
// a request is pending.
func (e *Engine) RemoveCancelHandler(entry *CancelEntry) error {
	e.cancels.mu.Lock()
	defer e.cancels.mu.Unlock()
	if e.cancels.pendingLocked() {
		return ErrRequestPending
	}
	e.cancels.removeLocked(entry)
	return nil
}

// Interrupt runs the top of the cancel stack.
func (e *Engine) Interrupt() bool {
	return e.cancels.Interrupt()
}

// LastResponse returns the most recent completed response, or nil.
func (e *Engine) LastResponse() *http.Response {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	return e.last
}

// Wait blocks until no request is in flight.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Dispatch sends req in the background and returns value.NoOutput without
// waiting for the response. It first waits for any request already in
// flight. Configuration faults are returned before anything is sent.
func (e *Engine) Dispatch(ctx context.Context, req *http.Request) (any, error) {
	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			<-e.slot
			return nil, err
		}
	}

	e.Preprocess(req)

	// The request outlives the statement that issued it.
	reqCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	entry, err := e.cancels.pushRequest(req.String(), cancel)
	if err != nil {
		cancel()
		<-e.slot
		return nil, err
	}

	e.inflight.Add(1)
	start := time.Now()
	logger.Printf("dispatch %s", req)

	_, err = e.client.ExecuteAsync(reqCtx, req, func(resp *http.Response, err error) {
		defer e.inflight.Done()
		defer func() { <-e.slot }()
		defer cancel()
		e.complete(req, entry, resp, err, time.Since(start))
	})
	if err != nil {
		e.cancels.Remove(entry)
		cancel()
		e.inflight.Done()
		<-e.slot
		logger.Printf("rejected %s: %v", req, err)
		return nil, err
	}
	return value.NoOutput, nil
}

func (e *Engine) complete(req *http.Request, entry *CancelEntry, resp *http.Response, err error, elapsed time.Duration) {
	e.cancels.Remove(entry)

	switch {
	case errors.Is(err, context.Canceled):
		logger.Printf("cancelled %s", req)
		e.stats.Record(req.Method, 0, elapsed, stats.Cancelled)
		e.console.Colorf(color.FgYellow, "Request Cancelled\n")
	case err != nil:
		logger.Printf("failed %s: %v", req, err)
		e.stats.Record(req.Method, 0, elapsed, stats.Failed)
		e.console.Colorf(color.FgRed, "Request Failed: %s\n", err)
	default:
		logger.Printf("completed %s: %s in %s", req, resp.Status, resp.Duration)
		e.stats.Record(req.Method, resp.StatusCode, resp.Duration, stats.Completed)
		e.lastMu.Lock()
		e.last = resp
		e.lastMu.Unlock()
		e.render(resp)
	}

	e.console.Reprompt()
}

func (e *Engine) render(resp *http.Response) {
	e.console.Session(func(s *output.Session) {
		if resp.IsSuccess() {
			restore := s.Foreground(color.FgGreen)
			s.Printf("Request Completed: %s\n", resp.Status)
			restore()
		} else {
			restore := s.Foreground(color.FgRed)
			s.Printf("Request Failed: %s\n", resp.Status)
			restore()
		}

		if len(resp.Body) == 0 {
			return
		}
		if pretty, ok := output.ReformatJSON(resp.Body); ok {
			s.Println(pretty)
			return
		}
		s.Println(resp.BodyString())
	})
}
