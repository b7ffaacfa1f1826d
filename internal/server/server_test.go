package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ai-chatbot-client/internal/bootstrap"
	"ai-chatbot-client/internal/config"
	"ai-chatbot-client/internal/dto"
	"ai-chatbot-client/internal/pkg/logger"
	"ai-chatbot-client/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, upstream http.HandlerFunc, timeout time.Duration) *Server {
	t.Helper()
	backend := httptest.NewServer(upstream)
	t.Cleanup(backend.Close)

	cfg := &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			CorsAllowedOrigins: "*",
		},
		Relay: config.RelayConfig{
			UpstreamURL:    backend.URL,
			RequestTimeout: timeout,
			BodyLimit:      1024 * 1024,
		},
	}
	log := logger.NewNopLogger()
	relay := service.NewRelayService(cfg.Relay.UpstreamURL, timeout, nil, log)
	return New(cfg, bootstrap.NewContainerWith(relay, log))
}

func doRequest(t *testing.T, srv *Server, method, path, auth, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := srv.GetApp().Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestRelayForwardsSuccess(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		body         string
		upstreamPath string
		response     string
	}{
		{"authenticate", http.MethodPost, "/api/auth", `{"name":"ada"}`, "/auth", `{"id":1,"name":"ada"}`},
		{"resolve identity", http.MethodGet, "/api/users/me", "", "/users/me", `{"id":1,"name":"ada"}`},
		{"list threads", http.MethodGet, "/api/threads", "", "/threads", `[{"id":1,"title":"t","created_at":"2024-05-01T09:00:00"}]`},
		{"list messages", http.MethodGet, "/api/threads/7/messages", "", "/threads/7/messages", `[]`},
		{"send message", http.MethodPost, "/api/send_message", `{"message":"hi","thread_id":null}`, "/send_message", `{"user_message":{},"chatbot_response":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.method, r.Method)
				assert.Equal(t, tt.upstreamPath, r.URL.Path)
				assert.Equal(t, "Bearer 1", r.Header.Get("Authorization"))
				if tt.body != "" {
					got, _ := io.ReadAll(r.Body)
					assert.JSONEq(t, tt.body, string(got))
				}
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(tt.response))
			}, 2*time.Second)

			status, body := doRequest(t, srv, tt.method, tt.path, "Bearer 1", tt.body)

			assert.Equal(t, http.StatusOK, status)
			assert.JSONEq(t, tt.response, body)
		})
	}
}

func TestRelayOmitsMissingAuthorization(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Authorization"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"id":1,"name":"ada"}`))
	}, 2*time.Second)

	status, _ := doRequest(t, srv, http.MethodPost, "/api/auth", "", `{"name":"ada"}`)

	assert.Equal(t, http.StatusOK, status)
}

func TestRelayUniformFailure(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		message string
		handler http.HandlerFunc
	}{
		{"upstream 401", "/api/threads", "Failed to fetch threads", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"bad credential"}`))
		}},
		{"upstream 404", "/api/users/me", "Failed to resolve user", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"non-json body", "/api/threads/3/messages", "Failed to fetch messages", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>proxy error</html>`))
		}},
		{"timeout", "/api/threads", "Failed to fetch threads", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
			_, _ = w.Write([]byte(`[]`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.handler, 100*time.Millisecond)

			status, body := doRequest(t, srv, http.MethodGet, tt.path, "Bearer 1", "")

			assert.Equal(t, http.StatusInternalServerError, status)
			var res dto.ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &res))
			assert.Equal(t, tt.message, res.Error)
			assert.NotContains(t, body, "bad credential")
		})
	}
}

func TestRelayRejectsInvalidThreadId(t *testing.T) {
	var calls int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`[]`))
	}, 2*time.Second)

	for _, id := range []string{"0", "-4", "abc", "1.5"} {
		status, body := doRequest(t, srv, http.MethodGet, "/api/threads/"+id+"/messages", "Bearer 1", "")

		assert.Equal(t, http.StatusInternalServerError, status, id)
		assert.JSONEq(t, `{"error":"Failed to fetch messages"}`, body, id)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-123", r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`[]`))
	}, 2*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/threads", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := srv.GetApp().Test(req, 5000)
	require.NoError(t, err)

	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	}, time.Second)

	status, body := doRequest(t, srv, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}
