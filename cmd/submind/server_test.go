package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/submind/config"
	"github.com/BaSui01/submind/testutil/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestApp 使用内存存储和模拟 provider 装配 App
func newTestApp(t *testing.T, mutate func(cfg *config.Config)) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Discussion.MaxRounds = 2
	cfg.Store.Type = "memory"
	if mutate != nil {
		mutate(cfg)
	}

	app, err := NewApp(cfg, zap.NewNop(), appOptions{
		provider: mocks.NewMockProvider().WithResponse("I see it differently."),
		registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func newTestHandler(t *testing.T, app *App) http.Handler {
	t.Helper()
	srv := NewServer(app, zap.NewNop())
	srv.initHandlers()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return srv.routes(ctx)
}

func TestServer_Routes(t *testing.T) {
	handler := newTestHandler(t, newTestApp(t, nil))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodGet, "/api/v1/personas", http.StatusOK},
		{http.MethodGet, "/api/v1/config", http.StatusOK},
		{http.MethodGet, "/api/v1/models", http.StatusOK},
		{http.MethodGet, "/api/v1/discussions", http.StatusOK},
		{http.MethodGet, "/api/v1/discussions/missing", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/discussions/missing", http.StatusNotFound},
		{http.MethodGet, "/api/v1/nothing-here", http.StatusNotFound},
		{http.MethodPut, "/api/v1/discussions", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		})
	}
}

func TestServer_DiscussionRoundTrip(t *testing.T) {
	app := newTestApp(t, nil)
	handler := newTestHandler(t, app)

	body, err := json.Marshal(map[string]any{"prompt": "Should we adopt a four-day week?", "max_rounds": 1})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/discussions", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created struct {
		Success bool `json:"success"`
		Data    struct {
			Discussion struct {
				ID     string `json:"id"`
				State  string `json:"state"`
				Rounds int    `json:"rounds"`
			} `json:"discussion"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.Success)
	assert.Equal(t, "terminated", created.Data.Discussion.State)
	assert.Equal(t, 1, created.Data.Discussion.Rounds)

	id := created.Data.Discussion.ID
	require.NotEmpty(t, id)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/discussions/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/discussions/"+id+"?format=markdown", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "### Initial Prompt")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/discussions/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/discussions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Auth(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.APIKeys = []string{"secret-key"}
	})
	handler := newTestHandler(t, app)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/personas", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/personas", nil)
	r.Header.Set("X-API-Key", "secret-key")
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ReadyFailsWhenGatewayDown(t *testing.T) {
	cfg := config.DefaultConfig()
	app, err := NewApp(cfg, zap.NewNop(), appOptions{
		provider: mocks.NewMockProvider().WithHealthError(assert.AnError),
		registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	w := httptest.NewRecorder()
	newTestHandler(t, app).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_StartAndShutdown(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.HTTPPort = freePort(t)
		cfg.Server.MetricsPort = 0
	})
	srv := NewServer(app, zap.NewNop())
	require.NoError(t, srv.Start())
	assert.Nil(t, srv.metricsManager)
	srv.Shutdown()
}

func TestNewApp_InvalidStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Type = "cassandra"
	_, err := NewApp(cfg, nil, appOptions{provider: mocks.NewMockProvider(), registry: prometheus.NewRegistry()})
	assert.Error(t, err)
}

func TestNewApp_InvalidExportFormat(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Export.Enabled = true
	cfg.Export.Formats = []string{"pdf"}
	_, err := NewApp(cfg, nil, appOptions{provider: mocks.NewMockProvider(), registry: prometheus.NewRegistry()})
	assert.Error(t, err)
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"https://app.example.com", "http://localhost:3000", "*.example.org"})
	assert.Equal(t, []string{"app.example.com", "localhost:3000", "*.example.org"}, got)
}
