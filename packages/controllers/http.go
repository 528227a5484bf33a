package controllers

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
	"github.com/abdul-hamid-achik/hitshell/packages/engine"
	"github.com/abdul-hamid-achik/hitshell/packages/http"
	"github.com/abdul-hamid-achik/hitshell/packages/import/curl"
	"github.com/abdul-hamid-achik/hitshell/packages/output"
	"github.com/abdul-hamid-achik/hitshell/packages/sse"
	"github.com/fatih/color"
)

// DefaultMimeType is the content type of a body given without one.
const DefaultMimeType = "text/plain"

// HTTP sends raw requests to the selected server.
type HTTP struct {
	engine *engine.Engine
}

func NewHTTP(e *engine.Engine) *HTTP {
	return &HTTP{engine: e}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Namespace() *registry.Namespace {
	ns := registry.NewNamespace(
		registry.MustCallable("get", h.verb("GET", false), registry.Params("path", "params"),
			registry.Describe("send a GET request; key=value params go to the query string")),
	)
	for _, method := range []string{"post", "put", "patch", "delete", "head", "options"} {
		ns.Add(registry.MustCallable(method, h.verb(method, true), registry.Params("path", "params"),
			registry.Describe("send a "+method+" request: path [body] [mimetype] key=value...")))
	}
	ns.Add(registry.MustCallable("upload", h.Upload, registry.Params("path", "field", "file", "params"),
		registry.Describe("send a file as multipart/form-data")))
	ns.Add(registry.MustCallable("curl", h.Curl, registry.Params("command"),
		registry.Describe("send the request described by a curl command line")))
	ns.Add(registry.MustCallable("sse", h.SSE, registry.Params("path", "count", "timeout"),
		registry.Default("count", float64(10)), registry.Default("timeout", float64(30)),
		registry.Describe("print server-sent events as they arrive; count 0 reads until timeout seconds pass")))
	return ns
}

func (h *HTTP) verb(method string, withBody bool) func(string, ...any) (any, error) {
	return func(path string, params ...any) (any, error) {
		req := http.NewRequest(method, path)
		if withBody {
			params = takeBody(req, params)
		}
		req.AddParams(params)
		return h.engine.Dispatch(background(), req)
	}
}

// takeBody consumes up to two leading plain arguments as the body and its
// mime type and returns the remaining parameters.
func takeBody(req *http.Request, params []any) []any {
	var plain []string
	for len(plain) < 2 && len(params) > 0 {
		if _, isPair := params[0].(value.KeyValue); isPair {
			break
		}
		plain = append(plain, value.Format(params[0]))
		params = params[1:]
	}

	switch len(plain) {
	case 1:
		req.SetBody(plain[0], DefaultMimeType)
	case 2:
		req.SetBody(plain[0], plain[1])
	}
	return params
}

// Upload posts file as the multipart field named field. Parameters become
// additional form fields.
func (h *HTTP) Upload(path, field, file string, params ...any) (any, error) {
	req := http.NewRequest("POST", path)
	req.Multipart = []http.MultipartField{{Name: field, Path: file}}
	for _, p := range params {
		if kv, ok := p.(value.KeyValue); ok {
			req.SetFormParam(kv.Key, value.Format(kv.Value))
		} else {
			req.SetQueryParam(value.Format(p), "")
		}
	}
	return h.engine.Dispatch(background(), req)
}

// Curl sends the request a pasted curl command line describes. Client-wide
// flags such as -k and -L are ignored.
func (h *HTTP) Curl(command string) (any, error) {
	parsed, err := curl.NewConverter().Parse(command)
	if err != nil {
		return nil, err
	}

	req := http.NewRequest(parsed.Method, parsed.URL)
	contentType := DefaultMimeType
	for k, v := range parsed.Headers {
		if k == "Content-Type" {
			contentType = v
			continue
		}
		req.SetHeader(k, v)
	}
	if parsed.Body != "" {
		req.SetBody(parsed.Body, contentType)
	}
	if parsed.BasicAuth != "" {
		req.SetHeader("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(parsed.BasicAuth)))
	}
	return h.engine.Dispatch(background(), req)
}

// SSE subscribes to an event stream and prints each event as it arrives.
// It blocks until count events were read, the server closes the stream,
// timeout seconds pass or the stream is interrupted, and returns the number
// of events read. A timeout of 0 waits for an interrupt.
func (h *HTTP) SSE(path string, count, timeout float64) (any, error) {
	h.engine.Wait()

	req := http.NewRequest("GET", path)
	h.engine.Preprocess(req)
	st, err := h.engine.Client().Streamer(req)
	if err != nil {
		return nil, err
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(background(), time.Duration(timeout*float64(time.Second)))
	} else {
		ctx, cancel = context.WithCancel(background())
	}
	defer cancel()

	entry, err := h.engine.AddCancelHandler("sse "+st.URL, cancel)
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.engine.RemoveCancelHandler(entry) }()

	console := h.engine.Console()
	client := sse.NewClient(st.URL, sse.WithHTTPClient(st.Client), sse.WithDecorator(st.Decorate))
	read := 0
	err = client.StreamWithHandler(ctx, func(ev sse.Event) bool {
		read++
		printEvent(console, ev)
		return count <= 0 || read < int(count)
	})

	switch {
	case errors.Is(err, context.Canceled):
		console.Colorf(color.FgYellow, "Stream Cancelled\n")
	case errors.Is(err, context.DeadlineExceeded):
	case err != nil:
		return nil, err
	}
	return read, nil
}

func printEvent(console *output.Console, ev sse.Event) {
	console.Session(func(s *output.Session) {
		restore := s.Foreground(color.FgCyan)
		switch {
		case ev.Type != "" && ev.ID != "":
			s.Printf("event %s (id %s)\n", ev.Type, ev.ID)
		case ev.Type != "":
			s.Printf("event %s\n", ev.Type)
		case ev.ID != "":
			s.Printf("event (id %s)\n", ev.ID)
		default:
			s.Printf("event\n")
		}
		restore()

		if pretty, ok := output.ReformatJSON([]byte(ev.Data)); ok {
			s.Println(pretty)
			return
		}
		s.Println(ev.Data)
	})
}
