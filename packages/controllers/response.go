package controllers

import (
	"github.com/abdul-hamid-achik/hitshell/packages/assertions"
	"github.com/abdul-hamid-achik/hitshell/packages/capture"
	"github.com/abdul-hamid-achik/hitshell/packages/core/binder"
	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/engine"
	"github.com/abdul-hamid-achik/hitshell/packages/http"
	"github.com/abdul-hamid-achik/hitshell/packages/snapshot"
)

// Response inspects the last completed response.
type Response struct {
	engine    *engine.Engine
	baseDir   string
	snapshots *snapshot.Store
}

func NewResponse(e *engine.Engine) *Response {
	return &Response{engine: e, snapshots: snapshot.NewStore("")}
}

// WithSnapshots replaces the in-memory snapshot store.
func (r *Response) WithSnapshots(s *snapshot.Store) *Response {
	r.snapshots = s
	return r
}

// WithBaseDir restricts schema files to dir.
func (r *Response) WithBaseDir(dir string) *Response {
	r.baseDir = dir
	return r
}

func (r *Response) Name() string { return "response" }

func (r *Response) Namespace() *registry.Namespace {
	return registry.NewNamespace(
		registry.MustCallable("status", r.Status, registry.Describe("status code")),
		registry.MustCallable("headers", r.Headers, registry.Describe("response headers")),
		registry.MustCallable("body", r.Body, registry.Describe("body, decoded when JSON")),
		registry.MustCallable("time", r.Time, registry.Describe("duration in milliseconds")),
		registry.MustCallable("get", r.Get, registry.Params("path"),
			registry.Describe("walk the JSON body, e.g. data.items[0].name")),
		registry.MustCallable("query", r.Query, registry.Params("path"),
			registry.Describe("run a gjson query over the body")),
		registry.MustCallable("validate", r.Validate, registry.Params("schema"),
			registry.Describe("validate the body against a JSON schema file or document")),
		registry.MustCallable("expect", r.Expect, registry.Params("subject", "operator", "expected"),
			registry.Default("expected", nil),
			registry.Describe("assert on status, duration, header X or a body path")),
		registry.MustCallable("snapshot", r.Snapshot, registry.Params("name"),
			registry.Default("name", ""),
			registry.Describe("compare the body with a stored snapshot, recording it the first time")),
	)
}

// last waits for the request in flight, if any, so that a script can
// inspect the response of the request it just sent.
func (r *Response) last() (*http.Response, error) {
	r.engine.Wait()
	resp := r.engine.LastResponse()
	if resp == nil {
		return nil, ErrNoResponse
	}
	return resp, nil
}

func (r *Response) Status() (int, error) {
	resp, err := r.last()
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

func (r *Response) Headers() (map[string]string, error) {
	resp, err := r.last()
	if err != nil {
		return nil, err
	}
	return resp.Headers, nil
}

func (r *Response) Time() (int64, error) {
	resp, err := r.last()
	if err != nil {
		return 0, err
	}
	return resp.DurationMs(), nil
}

// Body returns the decoded JSON body, or the raw text when the body is not
// JSON.
func (r *Response) Body() (any, error) {
	resp, err := r.last()
	if err != nil {
		return nil, err
	}
	if v, err := resp.BodyJSON(); err == nil {
		return v, nil
	}
	return resp.BodyString(), nil
}

// Get walks path through the decoded body. A missing member yields the
// missing-member value rather than an error.
func (r *Response) Get(path string) (any, error) {
	body, err := r.Body()
	if err != nil {
		return nil, err
	}
	return binder.Walk(body, path), nil
}

// Query returns nil when path matches nothing.
func (r *Response) Query(path string) (any, error) {
	resp, err := r.last()
	if err != nil {
		return nil, err
	}
	v, _ := capture.Query(resp, path)
	return v, nil
}

func (r *Response) evaluator(resp *http.Response) *assertions.Evaluator {
	if r.baseDir != "" {
		return assertions.NewEvaluator(resp, assertions.WithBaseDir(r.baseDir))
	}
	return assertions.NewEvaluator(resp)
}

func (r *Response) Validate(schema string) (*assertions.Result, error) {
	resp, err := r.last()
	if err != nil {
		return nil, err
	}
	return r.evaluator(resp).ValidateSchema(schema), nil
}

func (r *Response) Expect(subject, operator string, expected any) (*assertions.Result, error) {
	resp, err := r.last()
	if err != nil {
		return nil, err
	}
	op, err := assertions.ParseOperator(operator)
	if err != nil {
		return nil, err
	}
	return r.evaluator(resp).Evaluate(subject, op, expected), nil
}

// Snapshot compares the body with the snapshot called name. Without a name
// the snapshot is keyed by method and URL.
func (r *Response) Snapshot(name string) (*assertions.Result, error) {
	body, err := r.Body()
	if err != nil {
		return nil, err
	}
	if name == "" {
		resp := r.engine.LastResponse()
		name = resp.Method + " " + resp.URL
	}

	res := r.snapshots.Compare(name, body)
	return &assertions.Result{
		Passed:   res.Passed,
		Message:  res.Message,
		Expected: res.Expected,
		Actual:   res.Actual,
		Subject:  "snapshot " + name,
		Operator: "matches",
	}, nil
}
