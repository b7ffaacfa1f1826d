package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ai-chatbot-client/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	relay := httptest.NewServer(handler)
	t.Cleanup(relay.Close)

	dir := t.TempDir()
	t.Setenv("RELAY_URL", relay.URL)
	t.Setenv("IDENTITY_STORE", "file")
	t.Setenv("IDENTITY_FILE", filepath.Join(dir, "identity.yaml"))
	t.Setenv("CLIENT_LOG_FILE_PATH", filepath.Join(dir, "chat.log"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginThenWhoami(t *testing.T) {
	setupEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			_, _ = w.Write([]byte(`{"id": 12, "name": "ada"}`))
		case "/threads":
			assert.Equal(t, "Bearer 12", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected call to %s", r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	out, err := execute(t, "login", "ada")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ada (id 12)")

	out, err = execute(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "ada (id 12)")

	out, err = execute(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")
}

func TestWhoamiWithoutSession(t *testing.T) {
	setupEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "Failed to resolve user"}`))
	})

	_, err := execute(t, "whoami")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestParseThreadId(t *testing.T) {
	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{"7", 7, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseThreadId(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindThread(t *testing.T) {
	threads := []entity.ChatThread{{Id: 1, Title: "a"}, {Id: 2, Title: "b"}}

	assert.Equal(t, "b", findThread(threads, 2).Title)
	assert.Equal(t, entity.ChatThread{Id: 9}, findThread(threads, 9))
}
