package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/submind/api"
	"github.com/BaSui01/submind/llm"
	"github.com/BaSui01/submind/testutil/mocks"
	"github.com/BaSui01/submind/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInfoHandler_HandlePersonas(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Model = "mistral-7b"
	cfg.Discussion.Active = []string{"beta"}
	h := NewInfoHandler(cfg, nil, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandlePersonas(w, httptest.NewRequest(http.MethodGet, "/api/v1/personas", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var views []api.PersonaView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w.Body).Data, &views))
	require.Len(t, views, 2, "disabled personas are hidden")
	assert.Equal(t, "Alpha", views[0].ID)
	assert.False(t, views[0].Active)
	assert.Equal(t, "Beta", views[1].ID)
	assert.True(t, views[1].Active)
	assert.Equal(t, "mistral-7b", views[0].Model)
	assert.Equal(t, 0.7, views[0].Temperature)
	assert.Equal(t, 500, views[0].MaxTokens)
}

func TestInfoHandler_HandlePersonas_AllActiveByDefault(t *testing.T) {
	h := NewInfoHandler(testConfig(), nil, nil)

	w := httptest.NewRecorder()
	h.HandlePersonas(w, httptest.NewRequest(http.MethodGet, "/api/v1/personas", nil))

	var views []api.PersonaView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w.Body).Data, &views))
	for _, v := range views {
		assert.True(t, v.Active, v.ID)
	}
}

func TestInfoHandler_HandleConfig_RedactsSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.APIKey = "sk-or-secret"
	cfg.Server.APIKeys = []string{"key-one"}
	cfg.Server.JWTSecret = "jwt-secret"
	cfg.Store.Redis.Password = "redis-secret"
	h := NewInfoHandler(cfg, nil, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleConfig(w, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	for _, secret := range []string{"sk-or-secret", "key-one", "jwt-secret", "redis-secret"} {
		assert.NotContains(t, body, secret)
	}

	var view api.ConfigView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w.Body).Data, &view))
	assert.True(t, view.AuthEnabled)
	assert.Equal(t, 2, view.Discussion.MaxRounds)
	assert.Equal(t, "memory", view.Store)
}

func TestInfoHandler_HandleModels(t *testing.T) {
	t.Run("lists models", func(t *testing.T) {
		h := NewInfoHandler(testConfig(), mocks.NewMockProvider().WithModels("mistral-7b", "llama-3"), zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleModels(w, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var models []llm.Model
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w.Body).Data, &models))
		require.Len(t, models, 2)
		assert.Equal(t, "mistral-7b", models[0].ID)
	})

	t.Run("gateway down", func(t *testing.T) {
		h := NewInfoHandler(testConfig(), mocks.NewMockProvider().WithHealthError(errors.New("refused")), zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleModels(w, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
		env := decodeEnvelope(t, w.Body)
		require.NotNil(t, env.Error)
		assert.Equal(t, string(types.ErrUpstreamError), env.Error.Code)
	})

	t.Run("no provider", func(t *testing.T) {
		h := NewInfoHandler(testConfig(), nil, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleModels(w, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
