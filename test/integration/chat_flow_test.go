package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-chatbot-client/internal/bootstrap"
	"ai-chatbot-client/internal/config"
	"ai-chatbot-client/internal/conversation"
	"ai-chatbot-client/internal/gateway"
	"ai-chatbot-client/internal/identity"
	"ai-chatbot-client/internal/pkg/logger"
	"ai-chatbot-client/internal/server"
	"ai-chatbot-client/internal/service"
	"ai-chatbot-client/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a tiny in-memory chatbot backend speaking the upstream wire format.
type fakeBackend struct {
	mu       sync.Mutex
	threads  []map[string]interface{}
	messages map[int][]map[string]interface{}
	nextId   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{messages: map[int][]map[string]interface{}{}, nextId: 1}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.URL.Path != "/auth" && r.Header.Get("Authorization") != "Bearer 1" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000")
	switch {
	case r.URL.Path == "/auth":
		writeJSON(w, map[string]interface{}{"id": 1, "name": "ada"})

	case r.URL.Path == "/users/me":
		writeJSON(w, map[string]interface{}{"id": 1, "name": "ada"})

	case r.URL.Path == "/threads":
		// newest first
		out := make([]map[string]interface{}, 0, len(b.threads))
		for i := len(b.threads) - 1; i >= 0; i-- {
			out = append(out, b.threads[i])
		}
		writeJSON(w, out)

	case strings.HasPrefix(r.URL.Path, "/threads/"):
		var id int
		_, _ = fmt.Sscanf(r.URL.Path, "/threads/%d/messages", &id)
		writeJSON(w, append([]map[string]interface{}{}, b.messages[id]...))

	case r.URL.Path == "/send_message":
		var req struct {
			Message  string `json:"message"`
			ThreadId *int   `json:"thread_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		res := map[string]interface{}{}
		threadId := 0
		if req.ThreadId == nil {
			threadId = len(b.threads) + 1
			thread := map[string]interface{}{"id": threadId, "title": req.Message, "created_at": now}
			b.threads = append(b.threads, thread)
			res["thread"] = thread
		} else {
			threadId = *req.ThreadId
		}

		userMsg := map[string]interface{}{"id": b.nextId, "message": req.Message, "timestamp": now}
		botMsg := map[string]interface{}{"id": b.nextId + 1, "message": "echo: " + req.Message, "timestamp": now, "response_to_id": b.nextId}
		b.nextId += 2
		b.messages[threadId] = append(b.messages[threadId], userMsg, botMsg)

		res["user_message"] = userMsg
		res["chatbot_response"] = botMsg
		writeJSON(w, res)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func startRelay(t *testing.T, upstream string) string {
	t.Helper()
	cfg := &config.Config{
		App:   config.AppConfig{Environment: "test", CorsAllowedOrigins: "*"},
		Relay: config.RelayConfig{UpstreamURL: upstream, RequestTimeout: 2 * time.Second, BodyLimit: 1 << 20},
	}
	log := logger.NewNopLogger()
	relay := service.NewRelayService(upstream, cfg.Relay.RequestTimeout, events.Discard{}, log)
	srv := server.New(cfg, bootstrap.NewContainerWith(relay, log))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.GetApp().Listener(ln) }()
	t.Cleanup(func() { _ = srv.GetApp().Shutdown() })

	return "http://" + ln.Addr().String() + "/api"
}

func TestChatFlowThroughRelay(t *testing.T) {
	backend := httptest.NewServer(newFakeBackend())
	defer backend.Close()
	relayURL := startRelay(t, backend.URL)

	ctx := context.Background()
	log := logger.NewNopLogger()
	store := identity.NewFileStore(t.TempDir() + "/identity.yaml")
	gw := gateway.NewHTTPClient(relayURL, 2*time.Second, log)
	m := conversation.NewManager(gw, store, events.Discard{}, log)

	_, err := m.Authenticate(ctx, "ada")
	require.NoError(t, err)
	assert.Empty(t, m.Threads())

	// first send creates thread 1
	require.NoError(t, m.SendMessage(ctx, "hello"))
	require.Len(t, m.Threads(), 1)
	assert.Equal(t, int64(1), m.Selected().Id)
	require.Len(t, m.Messages(), 2)
	assert.Equal(t, "echo: hello", m.Messages()[1].Message)

	// reply in the same thread appends
	require.NoError(t, m.SendMessage(ctx, "again"))
	assert.Len(t, m.Messages(), 4)

	// a second thread lands on top of the list
	m.StartNewThread(ctx)
	require.NoError(t, m.SendMessage(ctx, "other topic"))
	threads := m.Threads()
	require.Len(t, threads, 2)
	assert.Equal(t, int64(2), threads[0].Id)
	assert.Equal(t, int64(2), m.Selected().Id)

	// a fresh manager over the same store resumes without authenticating
	resumed := conversation.NewManager(gw, store, events.Discard{}, log)
	user, err := resumed.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Name)
	require.Len(t, resumed.Threads(), 2)

	require.NoError(t, resumed.SelectThread(ctx, resumed.Threads()[1]))
	messages := resumed.Messages()
	require.Len(t, messages, 4)
	assert.False(t, messages[2].IsBotReply())
	assert.True(t, messages[3].IsBotReply())
}

func TestRelayFailureIsOpaqueToClient(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail": "model offline"}`))
	}))
	defer backend.Close()
	relayURL := startRelay(t, backend.URL)

	gw := gateway.NewHTTPClient(relayURL, 2*time.Second, logger.NewNopLogger())
	_, err := gw.ListThreads(context.Background(), "1")

	require.ErrorIs(t, err, gateway.ErrUpstream)
	assert.NotContains(t, err.Error(), "model offline")
	assert.Contains(t, err.Error(), "Failed to fetch threads")
}
