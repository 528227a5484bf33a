package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/test", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL + "/api/"))
	req := NewRequest("get", "/test").AddParams([]any{value.KeyValue{Key: "page", Value: float64(2)}})
	resp, err := client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "200 OK", resp.Status)
	assert.True(t, resp.IsJSON())
	assert.True(t, resp.IsSuccess())
	assert.Contains(t, resp.BodyString(), "hello")
}

func TestClient_PostFormParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("name"))
		assert.Empty(t, r.URL.RawQuery)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	req := NewRequest("POST", "users").AddParams([]any{value.KeyValue{Key: "name", Value: "alice"}})
	resp, err := client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
}

func TestClient_PostBodyMovesParamsToQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"name":"test"}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "true", r.URL.Query().Get("dry"))
		assert.Equal(t, "hitshell", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithDefaultHeaders(map[string]string{"User-Agent": "hitshell"}))
	req := NewRequest("POST", "/items").SetBody(`{"name":"test"}`, "application/json")
	req.AddParams([]any{value.KeyValue{Key: "dry", Value: "true"}})

	_, err := client.Do(context.Background(), req)
	require.NoError(t, err)
}

func TestClient_BuildURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		path    string
		want    string
		wantErr bool
	}{
		{"joins path", "http://example.com", "/status", "http://example.com/status", false},
		{"keeps base path", "http://example.com/v1/", "status", "http://example.com/v1/status", false},
		{"empty path", "http://example.com", "", "http://example.com", false},
		{"absolute path ignores base", "", "https://other.example/x", "https://other.example/x", false},
		{"no base", "", "/status", "", true},
		{"bad scheme", "ftp://example.com", "/x", "", true},
		{"no host", "http://", "/x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(WithBaseURL(tt.base))
			got, err := client.BuildURL(NewRequest("GET", tt.path))
			if tt.wantErr {
				var cfgErr *ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "invalid URI, you might not have selected a server", cfgErr.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_NoServerCause(t *testing.T) {
	_, err := NewClient().BuildURL(NewRequest("GET", "/x"))
	assert.ErrorIs(t, err, ErrNoServer)
}

func TestClient_Configure(t *testing.T) {
	client := NewClient()
	client.Configure(func(cfg *Config) {
		cfg.BaseURL = "http://example.com"
	})

	cfg := client.Config()
	assert.Equal(t, "http://example.com", cfg.BaseURL)
	assert.NotNil(t, cfg.Jar)
}

func TestClient_CookieJar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		c, err := r.Cookie("session")
		if assert.NoError(t, err) {
			assert.Equal(t, "abc", c.Value)
		}
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.Do(context.Background(), NewRequest("GET", "/login"))
	require.NoError(t, err)
	_, err = client.Do(context.Background(), NewRequest("GET", "/me"))
	require.NoError(t, err)
}

func TestClient_Redirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	follow := NewClient(WithBaseURL(server.URL))
	resp, err := follow.Do(context.Background(), NewRequest("GET", "/old"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	noFollow := NewClient(WithBaseURL(server.URL), WithFollowRedirects(false))
	resp, err = noFollow.Do(context.Background(), NewRequest("GET", "/old"))
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
}

func TestClient_ExecuteAsync(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	results := make(chan *Response, 1)
	h, err := client.ExecuteAsync(context.Background(), NewRequest("GET", "/slow"), func(resp *Response, err error) {
		assert.NoError(t, err)
		results <- resp
	})
	require.NoError(t, err)

	select {
	case <-results:
		t.Fatal("completion ran before the response arrived")
	default:
	}

	close(release)
	select {
	case resp := <-results:
		assert.Equal(t, 204, resp.StatusCode)
	case <-time.After(5 * time.Second):
		t.Fatal("request did not complete")
	}
	<-h.Done()
}

func TestClient_ExecuteAsyncAbort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	errs := make(chan error, 1)
	h, err := client.ExecuteAsync(context.Background(), NewRequest("GET", "/hang"), func(resp *Response, err error) {
		errs <- err
	})
	require.NoError(t, err)

	h.Abort()
	select {
	case err := <-errs:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("abort did not complete the request")
	}
}

func TestClient_ExecuteAsyncConfigurationFault(t *testing.T) {
	client := NewClient(WithBaseURL("not a url"))
	called := false
	_, err := client.ExecuteAsync(context.Background(), NewRequest("GET", "/x"), func(*Response, error) {
		called = true
	})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.False(t, called)
}

func TestClient_Multipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("file contents"), 0644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "note", r.FormValue("kind"))
		f, header, err := r.FormFile("upload")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "data.txt", header.Filename)
		assert.Equal(t, "file contents", string(data))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	req := NewRequest("POST", "/upload")
	req.Multipart = []MultipartField{{Name: "upload", Path: path}}
	req.SetFormParam("kind", "note")

	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRequest_AddParams(t *testing.T) {
	get := NewRequest("GET", "/").AddParams([]any{value.KeyValue{Key: "n", Value: 1.5}, "flag"})
	assert.Equal(t, "1.5", get.Query.Get("n"))
	assert.True(t, get.Query.Has("flag"))

	del := NewRequest("DELETE", "/").AddParams([]any{value.KeyValue{Key: "id", Value: float64(7)}})
	assert.Equal(t, "7", del.Form.Get("id"))
	assert.Empty(t, del.Query)

	v, ok := NewRequest("GET", "/").SetHeader("X-Token", "t").Header("x-token")
	assert.True(t, ok)
	assert.Equal(t, "t", v)
	assert.True(t, strings.HasPrefix(NewRequest("get", "/a").String(), "GET"))
}
