package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestAgentCallWireShape(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rpc", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer ts.Close()

	c := New(ts.URL, 5*time.Second, nil, testLogger())
	err := c.Agent(context.Background(), AgentRequest{
		SessionKey:     "agent:builder:webchat:channel:ch1",
		Message:        "wake up",
		IdempotencyKey: "key-1",
		TimeoutMs:      300_000,
	})
	require.NoError(t, err)

	assert.Equal(t, "agent", got["method"])
	params := got["params"].(map[string]any)
	assert.Equal(t, "agent:builder:webchat:channel:ch1", params["sessionKey"])
	assert.Equal(t, "wake up", params["message"])
	assert.Equal(t, false, params["deliver"])
	assert.Equal(t, "key-1", params["idempotencyKey"])
	assert.Equal(t, float64(300_000), params["timeoutMs"])
}

func TestAgentCallFailures(t *testing.T) {
	t.Run("rpc error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":    false,
				"error": map[string]any{"code": "UNAVAILABLE", "message": "session busy"},
			})
		}))
		defer ts.Close()

		c := New(ts.URL, 5*time.Second, nil, testLogger())
		err := c.Agent(context.Background(), AgentRequest{SessionKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session busy")
	})

	t.Run("http error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer ts.Close()

		c := New(ts.URL, 5*time.Second, nil, testLogger())
		require.Error(t, c.Agent(context.Background(), AgentRequest{SessionKey: "s"}))
	})

	t.Run("unreachable", func(t *testing.T) {
		c := New("http://127.0.0.1:1", time.Second, nil, testLogger())
		require.Error(t, c.Agent(context.Background(), AgentRequest{SessionKey: "s"}))
	})
}

func TestCallLogRecordsEveryDispatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer ts.Close()

	logPath := filepath.Join(t.TempDir(), "logs", "llm-calls.jsonl")
	callLog, err := OpenCallLog(logPath, testLogger())
	require.NoError(t, err)
	defer callLog.Close()

	c := New(ts.URL, 5*time.Second, callLog, testLogger())
	for _, key := range []string{"k1", "k2"} {
		require.NoError(t, c.Agent(context.Background(), AgentRequest{
			SessionKey:     "agent:builder:webchat:channel:ch1",
			IdempotencyKey: key,
			AgentID:        "builder",
			ChannelID:      "ch1",
		}))
	}

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()

	var records []CallRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec CallRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	assert.Equal(t, "k1", records[0].IdempotencyKey)
	assert.Equal(t, "k2", records[1].IdempotencyKey)
	for _, rec := range records {
		assert.True(t, rec.OK)
		assert.Equal(t, "builder", rec.AgentID)
		assert.Equal(t, "ch1", rec.ChannelID)
		assert.NotZero(t, rec.Timestamp)
	}
}
