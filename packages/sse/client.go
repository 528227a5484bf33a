// Package sse reads Server-Sent Events streams.
package sse

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Event represents a single SSE event.
type Event struct {
	ID    string
	Type  string
	Data  string
	Retry int
}

// Client is an SSE client that connects to an SSE endpoint and receives events.
type Client struct {
	httpClient  *http.Client
	url         string
	headers     map[string]string
	timeout     time.Duration
	lastEventID string
	decorate    func(*http.Request) error
}

// Option is a functional option for configuring an SSE Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithHeaders sets custom headers for the SSE request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithTimeout sets the connection timeout. Zero leaves the stream open
// until the context ends.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLastEventID sets the Last-Event-ID header for reconnection.
func WithLastEventID(id string) Option {
	return func(c *Client) {
		c.lastEventID = id
	}
}

// WithDecorator runs fn on the request before the SSE and custom headers
// are set, so those win. Authenticators hook in here.
func WithDecorator(fn func(*http.Request) error) Option {
	return func(c *Client) {
		c.decorate = fn
	}
}

// NewClient creates a new SSE client.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:     url,
		headers: make(map[string]string),
		timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// StreamResult contains the results of an SSE stream.
type StreamResult struct {
	Events   []Event
	Error    error
	Duration time.Duration
}

// Stream connects to the SSE endpoint and collects events until the context is cancelled
// or the specified event count is reached.
func (c *Client) Stream(ctx context.Context, maxEvents int) *StreamResult {
	start := time.Now()
	result := &StreamResult{
		Events: make([]Event, 0),
	}

	result.Error = c.StreamWithHandler(ctx, func(event Event) bool {
		result.Events = append(result.Events, event)
		return maxEvents <= 0 || len(result.Events) < maxEvents
	})
	result.Duration = time.Since(start)
	return result
}

// EventHandler is a callback for handling SSE events. Returning false
// closes the stream.
type EventHandler func(event Event) bool

// StreamWithHandler connects to the SSE endpoint and calls the handler for
// each event. It returns nil when the server ends the stream or the
// handler stops it, and the context's error when that ends first.
func (c *Client) StreamWithHandler(ctx context.Context, handler EventHandler) error {
	resp, err := c.connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()

	err = readEvents(resp.Body, handler)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (c *Client) connect(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.decorate != nil {
		if err := c.decorate(req); err != nil {
			return nil, err
		}
	}

	// Set SSE headers
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	// Set custom headers
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	// Set Last-Event-ID if specified
	if c.lastEventID != "" {
		req.Header.Set("Last-Event-ID", c.lastEventID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	// Check content type
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected content type: %s (expected text/event-stream)", contentType)
	}
	return resp, nil
}

// parseEvents reads and parses up to maxEvents SSE events from a reader.
func (c *Client) parseEvents(reader io.Reader, maxEvents int) ([]Event, error) {
	var events []Event
	err := readEvents(reader, func(event Event) bool {
		events = append(events, event)
		return maxEvents <= 0 || len(events) < maxEvents
	})
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return events, err
}

// readEvents feeds each event to handler until it returns false or the
// stream ends, in which case the error is io.EOF.
func readEvents(reader io.Reader, handler EventHandler) error {
	scanner := bufio.NewScanner(reader)
	var currentEvent Event
	var dataLines []string

	emit := func() bool {
		if len(dataLines) == 0 {
			return true
		}
		currentEvent.Data = strings.Join(dataLines, "\n")
		more := handler(currentEvent)
		// Reset for next event
		currentEvent = Event{}
		dataLines = nil
		return more
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line signals end of event
		if line == "" {
			if !emit() {
				return nil
			}
			continue
		}

		// Comment, ignore
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		// Remove leading space from value
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			currentEvent.Type = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			currentEvent.ID = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil {
				currentEvent.Retry = ms
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	// Handle any remaining event
	if !emit() {
		return nil
	}
	return io.EOF
}
