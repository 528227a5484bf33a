// Package script renders imported requests as hitshell scripts.
//
// Importers (curl, insomnia, openapi, postman) convert their source
// format into a list of Request values; Render turns them into statements
// that hitshell run can execute. Per-request headers and credentials are set
// before the request and cleared after it, since headers and auth are
// session-wide in the shell.
package script

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/core/parser"
)

// Request is one imported request.
type Request struct {
	Name        string
	Method      string
	URL         string
	Headers     map[string]string
	Query       []QueryParam
	Body        string
	ContentType string
	BasicAuth   *Credentials
	BearerToken string
	// Checks replace the default status check when assertions are on.
	Checks []Check
}

// Check is one response.expect statement.
type Check struct {
	Subject  string
	Operator string
	Expected any
}

// QueryParam is one query string entry.
type QueryParam struct {
	Name  string
	Value string
}

// Credentials is a username and password pair.
type Credentials struct {
	Username string
	Password string
}

// Server is a named base address to bookmark before the requests run.
type Server struct {
	Name    string
	Address string
}

// Script is a rendered set of requests.
type Script struct {
	Title    string
	Servers  []Server
	Requests []Request
	// Expect adds a status check after each request.
	Expect bool
}

// Render returns the script text.
func (s *Script) Render() string {
	var sb strings.Builder
	if s.Title != "" {
		fmt.Fprintf(&sb, "# %s\n", s.Title)
	}

	for i, srv := range s.Servers {
		if i == 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "servers.add %s %s\n", Literal(srv.Name), Literal(srv.Address))
	}

	for _, req := range s.Requests {
		sb.WriteString("\n")
		writeRequest(&sb, req, s.Expect)
	}
	return sb.String()
}

func writeRequest(sb *strings.Builder, req Request, expect bool) {
	if req.Name != "" {
		fmt.Fprintf(sb, "# %s\n", req.Name)
	}

	contentType := req.ContentType
	headers := make([]string, 0, len(req.Headers))
	for k, v := range req.Headers {
		if strings.EqualFold(k, "Content-Type") {
			if contentType == "" {
				contentType = v
			}
			continue
		}
		headers = append(headers, k)
	}
	sort.Strings(headers)

	for _, k := range headers {
		fmt.Fprintf(sb, "headers.set %s %s\n", Literal(k), Literal(req.Headers[k]))
	}
	switch {
	case req.BasicAuth != nil:
		fmt.Fprintf(sb, "auth.basic %s %s\n", Literal(req.BasicAuth.Username), Literal(req.BasicAuth.Password))
	case req.BearerToken != "":
		fmt.Fprintf(sb, "auth.bearer %s\n", Literal(req.BearerToken))
	}

	method := strings.ToLower(req.Method)
	if method == "" {
		method = "get"
	}
	hasBody := req.Body != "" && method != "get" && method != "head"
	// Parameters only reach the query string for bodiless GET and HEAD
	// requests or requests with a body; anything else goes into the URL.
	asParams := hasBody || method == "get" || method == "head"
	target := req.URL
	var params []string
	for _, q := range req.Query {
		if asParams && parser.IsIdentifier(q.Name) {
			params = append(params, q.Name+"="+Literal(q.Value))
			continue
		}
		target = appendQuery(target, q)
	}

	fmt.Fprintf(sb, "http.%s %s", method, Literal(target))
	if hasBody {
		if contentType == "" {
			contentType = "text/plain"
		}
		fmt.Fprintf(sb, " %s %s", Quote(req.Body), Literal(contentType))
	}
	for _, p := range params {
		sb.WriteString(" " + p)
	}
	sb.WriteString("\n")

	if expect {
		checks := req.Checks
		if len(checks) == 0 {
			checks = []Check{{Subject: "status", Operator: "<", Expected: 400}}
		}
		for _, c := range checks {
			fmt.Fprintf(sb, "response.expect %s %s %s\n", Literal(c.Subject), c.Operator, expected(c.Expected))
		}
	}
	if req.BasicAuth != nil || req.BearerToken != "" {
		sb.WriteString("auth.clear\n")
	}
	for _, k := range headers {
		fmt.Fprintf(sb, "headers.clear %s\n", Literal(k))
	}
}

func expected(v any) string {
	switch v := v.(type) {
	case string:
		return Literal(v)
	case int, int64, float64:
		return fmt.Sprint(v)
	default:
		return Quote(fmt.Sprint(v))
	}
}

func appendQuery(target string, q QueryParam) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + url.QueryEscape(q.Name) + "=" + url.QueryEscape(q.Value)
}

// Literal returns s as a bare token when it reads back as the same
// string, and quoted otherwise.
func Literal(s string) string {
	if isBare(s) {
		return s
	}
	return Quote(s)
}

// Quote returns s as a double-quoted string literal.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// isBare reports whether s is safe unquoted: ASCII letters, digits and
// path punctuation only, starting with a letter, '_' or '/'. That rules out
// quotes, separators, a '=' that would make a key=value pair and numbers.
func isBare(s string) bool {
	if s == "" {
		return false
	}
	if c := s[0]; !isLetter(c) && c != '/' && c != '_' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isLetter(c) && !('0' <= c && c <= '9') && !strings.ContainsRune("/:._-", rune(c)) {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
