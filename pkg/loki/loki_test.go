package loki

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type MockLogger struct{}

func (m *MockLogger) Error(msg string, args ...any) {
}

func Test_ConfigValidation(t *testing.T) {
	cfg := Config{}
	_, err := New(context.Background(), cfg, &MockLogger{})
	assert.Error(t, err)

	cfg.Url = "http://loki:3100/loki/api/v1/push"
	pusher, err := New(context.Background(), cfg, &MockLogger{})
	require.NoError(t, err)
	defer pusher.Stop()

	assert.Equal(t, cfg.Url, pusher.config.Url)
	assert.Equal(t, 1000, pusher.config.BatchMaxSize)
	assert.Equal(t, 5*time.Second, pusher.config.BatchMaxWait)
	assert.Equal(t, 4096, pusher.config.BufferSize)
	assert.Equal(t, map[string]string{}, pusher.config.Labels)
}

func Test_Stop_FlushesPendingEntriesGroupedByLabels(t *testing.T) {
	var mu sync.Mutex
	var received lokiPushRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gz, err := gzip.NewReader(r.Body)
		if !assert.NoError(t, err) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, json.NewDecoder(gz).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pusher, err := New(context.Background(), Config{
		Url:          server.URL,
		BatchMaxWait: time.Hour,
		Labels:       map[string]string{"app": "test"},
	}, &MockLogger{})
	require.NoError(t, err)

	_ = pusher.Push(LogEntry{Level: "error", Message: "db down", ErrorType: "db"})
	_ = pusher.Push(LogEntry{Level: "error", Message: "db still down", ErrorType: "db"})
	_ = pusher.Push(LogEntry{Level: "info", Message: "started"})
	pusher.Stop()
	pusher.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received.Streams, 2)
	assert.Equal(t, map[string]string{"app": "test", "level": "error", "error_type": "db"}, received.Streams[0].Stream)
	assert.Len(t, received.Streams[0].Values, 2)
	assert.Equal(t, map[string]string{"app": "test", "level": "info"}, received.Streams[1].Stream)
}
