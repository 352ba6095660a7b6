// ABOUTME: Tests for client construction, header wiring, and the probe call.
// ABOUTME: Also holds the shared httptest-backed client helper for service tests.

package dust

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testWorkspace is the workspace id baked into every test client, shared so
// path assertions across test files stay consistent.
const testWorkspace = "wksp_test"

// newTestClient starts an httptest server behind handler and returns a
// Client pointed at it. Both are torn down with the test.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:     server.URL,
		WorkspaceID: testWorkspace,
		APIKey:      "sk-test-key",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	t.Run("missing workspace", func(t *testing.T) {
		_, err := NewClient(Config{APIKey: "sk-test"})
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("NewClient() error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := NewClient(Config{WorkspaceID: "wksp"})
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("NewClient() error = %v, want ErrConfiguration", err)
		}
	})
}

func TestNewClientWiresServices(t *testing.T) {
	client, err := NewClient(Config{WorkspaceID: "wksp", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if client.Agents == nil || client.Conversations == nil || client.Chat == nil {
		t.Fatalf("services not wired: agents=%v conversations=%v chat=%v",
			client.Agents, client.Conversations, client.Chat)
	}
}

func TestClientRequestHeaders(t *testing.T) {
	var got http.Header
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))

	if err := client.Validate(context.Background()); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if auth := got.Get("Authorization"); auth != "Bearer sk-test-key" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer sk-test-key")
	}
	if accept := got.Get("Accept"); accept != "application/json" {
		t.Errorf("Accept = %q, want %q", accept, "application/json")
	}
	if ua := got.Get("User-Agent"); !strings.HasPrefix(ua, "dust-go/") {
		t.Errorf("User-Agent = %q, want dust-go/ prefix", ua)
	}
	if got.Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header missing")
	}
}

func TestClientUserAgentSuffix(t *testing.T) {
	var ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		BaseURL:         server.URL,
		WorkspaceID:     "wksp",
		APIKey:          "sk-test",
		UserAgentSuffix: "dust-chat",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if err := client.Validate(context.Background()); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.HasSuffix(ua, " dust-chat") {
		t.Errorf("User-Agent = %q, want %q suffix", ua, "dust-chat")
	}
}

func TestClientPrefersAPIKey(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		BaseURL:     server.URL,
		WorkspaceID: "wksp",
		APIKey:      "sk-key",
		AccessToken: "oauth-token",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if err := client.Validate(context.Background()); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if auth != "Bearer sk-key" {
		t.Errorf("Authorization = %q, want the API key, not the access token", auth)
	}
}

func TestClientValidateProbe(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		var path string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.Write([]byte(`{"agentConfigurations":[]}`))
		}))

		if err := client.Validate(context.Background()); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		want := "/api/v1/w/" + testWorkspace + "/assistant/agent_configurations"
		if path != want {
			t.Errorf("probe path = %q, want %q", path, want)
		}
	})

	t.Run("bad credentials", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":"not_authenticated","message":"Invalid API key"}}`))
		}))

		err := client.Validate(context.Background())
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("Validate() error = %v, want ErrUnauthorized", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Validate() error = %T, want *APIError", err)
		}
		if apiErr.Code != "not_authenticated" {
			t.Errorf("Code = %q, want %q", apiErr.Code, "not_authenticated")
		}
	})
}

func TestClientStreamTransportHasNoTimeout(t *testing.T) {
	client, err := NewClient(Config{
		WorkspaceID: "wksp",
		APIKey:      "sk-test",
		Timeout:     2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if client.httpClient.Timeout != 2*time.Second {
		t.Errorf("unary timeout = %v, want 2s", client.httpClient.Timeout)
	}
	// Streams outlive any per-call timeout; only the request context may
	// bound them.
	if client.streamClient.Timeout != 0 {
		t.Errorf("stream timeout = %v, want 0", client.streamClient.Timeout)
	}
}

func TestBool(t *testing.T) {
	if v := Bool(true); v == nil || !*v {
		t.Errorf("Bool(true) = %v, want pointer to true", v)
	}
	if v := Bool(false); v == nil || *v {
		t.Errorf("Bool(false) = %v, want pointer to false", v)
	}
}
