package curl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_SimpleGet(t *testing.T) {
	converter := NewConverter()

	parsed, err := converter.Parse(`curl https://api.example.com/users`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.Method != "GET" {
		t.Errorf("expected method GET, got %s", parsed.Method)
	}
	if parsed.URL != "https://api.example.com/users" {
		t.Errorf("expected URL https://api.example.com/users, got %s", parsed.URL)
	}
}

func TestParse_PostWithData(t *testing.T) {
	converter := NewConverter()

	parsed, err := converter.Parse(`curl -X POST https://api.example.com/users -d '{"name":"John"}'`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.Method != "POST" {
		t.Errorf("expected method POST, got %s", parsed.Method)
	}
	if parsed.Body != `{"name":"John"}` {
		t.Errorf("expected body {\"name\":\"John\"}, got %s", parsed.Body)
	}
}

func TestParse_WithHeaders(t *testing.T) {
	converter := NewConverter()

	parsed, err := converter.Parse(`curl -H "Content-Type: application/json" -H "Authorization: Bearer token123" https://api.example.com/users`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.Headers["Content-Type"] != "application/json" {
		t.Errorf("expected Content-Type: application/json, got %s", parsed.Headers["Content-Type"])
	}
	if parsed.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("expected Authorization: Bearer token123, got %s", parsed.Headers["Authorization"])
	}
}

func TestParse_WithBasicAuth(t *testing.T) {
	converter := NewConverter()

	parsed, err := converter.Parse(`curl -u admin:password123 https://api.example.com/admin`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.BasicAuth != "admin:password123" {
		t.Errorf("expected basicAuth admin:password123, got %s", parsed.BasicAuth)
	}
}

func TestParse_ImplicitPost(t *testing.T) {
	converter := NewConverter()

	// Without -X, -d should imply POST
	parsed, err := converter.Parse(`curl -d "name=John" https://api.example.com/users`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.Method != "POST" {
		t.Errorf("expected implicit POST method, got %s", parsed.Method)
	}
}

func TestParse_Flags(t *testing.T) {
	converter := NewConverter()

	parsed, err := converter.Parse(`curl -k -L https://api.example.com`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !parsed.Insecure {
		t.Error("expected Insecure to be true")
	}
	if !parsed.FollowRedirects {
		t.Error("expected FollowRedirects to be true")
	}
}

func TestParse_JSONFlag(t *testing.T) {
	converter := NewConverter()

	parsed, err := converter.Parse(`curl --json '{"a":1}' https://api.example.com/items`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.Method != "POST" {
		t.Errorf("expected implicit POST method, got %s", parsed.Method)
	}
	if parsed.Headers["Content-Type"] != "application/json" {
		t.Errorf("expected JSON content type, got %q", parsed.Headers["Content-Type"])
	}
}

func TestRequest(t *testing.T) {
	parsed := &ParsedCurl{
		Method:    "GET",
		URL:       "https://api.example.com/admin",
		Headers:   map[string]string{"X-Trace": "1"},
		BasicAuth: "admin:secret",
		Name:      "get_admin",
	}

	req := parsed.Request()
	if req.BasicAuth == nil || req.BasicAuth.Username != "admin" || req.BasicAuth.Password != "secret" {
		t.Errorf("expected basic auth admin/secret, got %+v", req.BasicAuth)
	}
	parsed.Headers["X-Trace"] = "2"
	if req.Headers["X-Trace"] != "1" {
		t.Error("expected request headers to be copied")
	}
}

func TestConvertCommand(t *testing.T) {
	converter := NewConverter()

	result, err := converter.ConvertCommand(`curl -X POST -H "Content-Type: application/json" -d '{"name":"John"}' https://api.example.com/users`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, `http.post https://api.example.com/users "{\"name\":\"John\"}" application/json`) {
		t.Errorf("expected converted command to contain the request, got:\n%s", result)
	}
	if !strings.Contains(result, "response.expect status < 400") {
		t.Error("expected converted command to contain a status check")
	}
	if !strings.HasPrefix(result, "# post_users\n") {
		t.Errorf("expected converted command to start with its name, got:\n%s", result)
	}
}

func TestConvertCommand_NoAssertions(t *testing.T) {
	converter := NewConverter(WithAssertions(false))

	result, err := converter.ConvertCommand(`curl -u admin:secret https://api.example.com/admin`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(result, "response.expect") {
		t.Error("expected no status check when disabled")
	}
	if !strings.Contains(result, "auth.basic admin secret\n") || !strings.Contains(result, "auth.clear\n") {
		t.Errorf("expected basic auth to be set and cleared, got:\n%s", result)
	}
}

func TestConvertFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.sh")
	content := "# smoke\ncurl https://api.example.com/health\n\ncurl -X DELETE \\\n  https://api.example.com/users/1\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := NewConverter(WithAssertions(false)).ConvertFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"# Generated from curl commands\n",
		"http.get https://api.example.com/health\n",
		"http.delete https://api.example.com/users/1\n",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("expected %q in:\n%s", want, result)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{
			input:    `-X POST -d "hello world"`,
			expected: []string{"-X", "POST", "-d", "hello world"},
		},
		{
			input:    `-H 'Content-Type: application/json'`,
			expected: []string{"-H", "Content-Type: application/json"},
		},
		{
			input:    `-d '{"key": "value"}'`,
			expected: []string{"-d", `{"key": "value"}`},
		},
	}

	for _, tt := range tests {
		tokens := tokenize(tt.input)
		if len(tokens) != len(tt.expected) {
			t.Errorf("tokenize(%q): got %d tokens, expected %d", tt.input, len(tokens), len(tt.expected))
			continue
		}
		for i, tok := range tokens {
			if tok != tt.expected[i] {
				t.Errorf("tokenize(%q)[%d]: got %q, expected %q", tt.input, i, tok, tt.expected[i])
			}
		}
	}
}

func TestGenerateName(t *testing.T) {
	tests := []struct {
		url    string
		method string
		expect string
	}{
		{"https://api.example.com/users", "GET", "get_users"},
		{"https://api.example.com/users/123", "GET", "get_users_123"},
		{"https://api.example.com/", "POST", "post_root"},
		{"https://api.example.com/api/v1/users", "PUT", "put_api_v1_users"},
	}

	for _, tt := range tests {
		result := generateName(tt.url, tt.method)
		if result != tt.expect {
			t.Errorf("generateName(%q, %q): got %q, expected %q", tt.url, tt.method, result, tt.expect)
		}
	}
}
