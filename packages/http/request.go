package http

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
)

// Request is an outgoing request relative to the configured base address.
type Request struct {
	Method      string
	Path        string
	Headers     map[string]string
	Query       url.Values
	Form        url.Values
	Body        string
	ContentType string
	Multipart   []MultipartField
}

func NewRequest(method, path string) *Request {
	return &Request{
		Method:  strings.ToUpper(method),
		Path:    path,
		Headers: make(map[string]string),
		Query:   make(url.Values),
		Form:    make(url.Values),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// Header looks up a header ignoring case.
func (r *Request) Header(key string) (string, bool) {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func (r *Request) SetBody(body, contentType string) *Request {
	r.Body = body
	r.ContentType = contentType
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.Query.Add(key, value)
	return r
}

func (r *Request) SetFormParam(key, value string) *Request {
	r.Form.Add(key, value)
	return r
}

// HasBody reports whether the request carries an explicit body.
func (r *Request) HasBody() bool {
	return r.Body != "" || len(r.Multipart) > 0
}

// AddParams adds command-line parameters to the request. key=value pairs
// become name/value entries; any other value becomes a name without a value.
// Parameters go to the query string for GET and HEAD requests and for
// requests with an explicit body, and to a form-encoded body otherwise.
func (r *Request) AddParams(params []any) *Request {
	toQuery := r.Method == "GET" || r.Method == "HEAD" || r.HasBody()
	for _, p := range params {
		key, val := paramPair(p)
		if toQuery {
			r.SetQueryParam(key, val)
		} else {
			r.SetFormParam(key, val)
		}
	}
	return r
}

func paramPair(p any) (string, string) {
	if kv, ok := p.(value.KeyValue); ok {
		return kv.Key, value.Format(kv.Value)
	}
	return value.Format(p), ""
}

// encodeBody returns the bytes to send and the content type to declare.
func (r *Request) encodeBody() ([]byte, string, error) {
	switch {
	case len(r.Multipart) > 0:
		buf, ct, err := BuildMultipartBody(r.Multipart, r.Form)
		if err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ct, nil
	case r.Body != "":
		return []byte(r.Body), r.ContentType, nil
	case len(r.Form) > 0:
		return []byte(r.Form.Encode()), "application/x-www-form-urlencoded", nil
	}
	return nil, "", nil
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s", r.Method, r.Path)
}
