package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// ErrNoServer is the cause of a ConfigurationError raised when no base
// address has been configured.
var ErrNoServer = errors.New("no base address configured")

// ConfigurationError reports a request that cannot be sent because of the
// client configuration, such as a malformed base address.
type ConfigurationError struct {
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func invalidURI(err error) *ConfigurationError {
	return &ConfigurationError{
		Message: "invalid URI, you might not have selected a server",
		Err:     err,
	}
}

// Authenticator signs or decorates an outgoing request. body is the exact
// payload that will be sent.
type Authenticator interface {
	Authenticate(req *http.Request, body []byte) error
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(req *http.Request, body []byte) error

func (f AuthenticatorFunc) Authenticate(req *http.Request, body []byte) error {
	return f(req, body)
}

// ChallengeAuthenticator is an Authenticator that can answer a 401
// challenge. Retry reports whether the request should be sent again.
type ChallengeAuthenticator interface {
	Authenticator
	Retry(req *http.Request, resp *Response) (bool, error)
}

// Config is the shared, mutable part of the client configuration.
type Config struct {
	BaseURL       string
	Authenticator Authenticator
	Jar           http.CookieJar
}

type Client struct {
	mu             sync.RWMutex
	config         Config
	httpClient     *http.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	defaultHeaders map[string]string
}

type ClientOption func(*Client)

// NewClient creates a client with an in-memory cookie jar and no request
// timeout: a request runs until it completes or is cancelled.
func NewClient(opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		config:         Config{Jar: jar},
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(map[string]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	if !c.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
	}

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithBaseURL sets the initial base address.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.config.BaseURL = baseURL
	}
}

// Configure mutates the shared configuration under the client's lock.
func (c *Client) Configure(fn func(cfg *Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.config)
}

// Config returns a snapshot of the shared configuration.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// BuildURL resolves req against the configured base address. A path that
// is itself an absolute http(s) URL is used as-is.
func (c *Client) BuildURL(req *Request) (string, error) {
	return buildURL(c.Config().BaseURL, req)
}

func buildURL(base string, req *Request) (string, error) {
	var target string
	if isAbsoluteURL(req.Path) {
		target = req.Path
	} else {
		if base == "" {
			return "", invalidURI(ErrNoServer)
		}
		if err := ValidateURL(base); err != nil {
			return "", invalidURI(err)
		}
		target = joinURL(base, req.Path)
	}

	u, err := neturl.Parse(target)
	if err != nil {
		return "", invalidURI(err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vals := range req.Query {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func isAbsoluteURL(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Do sends req and reads the whole response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	cfg := c.Config()

	target, err := buildURL(cfg.BaseURL, req)
	if err != nil {
		return nil, err
	}

	body, contentType, err := req.encodeBody()
	if err != nil {
		return nil, err
	}

	hc := *c.httpClient
	hc.Jar = cfg.Jar

	resp, err := c.send(ctx, &hc, cfg, req, target, body, contentType, nil)
	if err != nil {
		return nil, err
	}

	challenger, ok := cfg.Authenticator.(ChallengeAuthenticator)
	if !ok || resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	retried, err := c.send(ctx, &hc, cfg, req, target, body, contentType, func(httpReq *http.Request) error {
		retry, err := challenger.Retry(httpReq, resp)
		if err != nil {
			return err
		}
		if !retry {
			return errNoRetry
		}
		return nil
	})
	if errors.Is(err, errNoRetry) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return retried, nil
}

var errNoRetry = errors.New("challenge not answered")

func (c *Client) send(ctx context.Context, hc *http.Client, cfg Config, req *Request, target string, body []byte, contentType string, decorate func(*http.Request) error) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader(body))
	if err != nil {
		return nil, err
	}

	if err := c.prepare(httpReq, cfg, req, body, contentType); err != nil {
		return nil, err
	}
	if decorate != nil {
		if err := decorate(httpReq); err != nil {
			return nil, fmt.Errorf("authenticating request: %w", err)
		}
	}

	start := time.Now()
	httpResp, err := hc.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string)
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	return &Response{
		Method:     req.Method,
		URL:        target,
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    headers,
		Body:       respBody,
		Duration:   duration,
	}, nil
}

// prepare sets the default headers, the request's own headers and its
// content type, then authenticates.
func (c *Client) prepare(httpReq *http.Request, cfg Config, req *Request, body []byte, contentType string) error {
	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if cfg.Authenticator != nil {
		if err := cfg.Authenticator.Authenticate(httpReq, body); err != nil {
			return fmt.Errorf("authenticating request: %w", err)
		}
	}
	return nil
}

// Streamer carries what a caller needs to read a bodiless request's
// response incrementally instead of through Do.
type Streamer struct {
	URL string
	// Client shares the transport and cookie jar but has no timeout.
	Client *http.Client
	// Decorate applies headers and authentication to the outgoing request.
	Decorate func(*http.Request) error
}

// Streamer resolves req against the base address.
func (c *Client) Streamer(req *Request) (*Streamer, error) {
	cfg := c.Config()

	target, err := buildURL(cfg.BaseURL, req)
	if err != nil {
		return nil, err
	}

	hc := *c.httpClient
	hc.Jar = cfg.Jar
	hc.Timeout = 0

	return &Streamer{
		URL:    target,
		Client: &hc,
		Decorate: func(httpReq *http.Request) error {
			return c.prepare(httpReq, cfg, req, nil, "")
		},
	}, nil
}

// Handle is an in-flight asynchronous request.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Abort cancels the request. The completion callback still runs, with a
// context cancellation error.
func (h *Handle) Abort() {
	h.cancel()
}

// Done is closed after the completion callback has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ExecuteAsync validates the target address, then sends req on a new
// goroutine and calls onComplete with the outcome. Configuration faults are
// returned synchronously and onComplete is not called.
func (c *Client) ExecuteAsync(ctx context.Context, req *Request, onComplete func(*Response, error)) (*Handle, error) {
	if _, err := c.BuildURL(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer cancel()
		resp, err := c.Do(ctx, req)
		onComplete(resp, err)
	}()

	return h, nil
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}
