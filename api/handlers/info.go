package handlers

import (
	"net/http"
	"slices"
	"strings"

	"github.com/BaSui01/submind/api"
	"github.com/BaSui01/submind/config"
	"github.com/BaSui01/submind/llm"
	"github.com/BaSui01/submind/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🎭 Persona / 配置 / 模型 Handler
// =============================================================================

// InfoHandler describes the running setup.
type InfoHandler struct {
	cfg      *config.Config
	provider llm.Provider
	logger   *zap.Logger
}

// NewInfoHandler 创建信息处理器，provider 可以为 nil
func NewInfoHandler(cfg *config.Config, provider llm.Provider, logger *zap.Logger) *InfoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InfoHandler{cfg: cfg, provider: provider, logger: logger}
}

// HandlePersonas 列出已启用的 persona，并标记默认激活的成员
func (h *InfoHandler) HandlePersonas(w http.ResponseWriter, r *http.Request) {
	roster, err := h.cfg.Roster()
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	active := h.cfg.Discussion.Active
	views := make([]api.PersonaView, 0, roster.Len())
	for _, p := range roster.All() {
		isActive := len(active) == 0 || slices.ContainsFunc(active, func(id string) bool {
			return strings.EqualFold(strings.TrimSpace(id), p.ID)
		})
		views = append(views, api.NewPersonaView(p, isActive))
	}
	writeSuccessFor(w, r, views)
}

// HandleConfig 返回不含密钥的运行配置
func (h *InfoHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeSuccessFor(w, r, api.ConfigView{
		Provider:     h.cfg.LLM.Provider,
		BaseURL:      h.cfg.LLM.BaseURL,
		Model:        h.cfg.LLM.Model,
		SystemRole:   h.cfg.LLM.SystemRole,
		DialogueMode: h.cfg.LLM.DialogueMode,
		Discussion:   h.cfg.Discussion.Orchestrator(),
		Active:       h.cfg.Discussion.Active,
		Store:        h.cfg.Store.Type,
		Export:       h.cfg.Export.Enabled,
		AuthEnabled:  len(h.cfg.Server.APIKeys) > 0 || h.cfg.Server.JWTSecret != "",
	})
}

// HandleModels 列出补全网关上的可用模型
func (h *InfoHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "no completion gateway configured", h.logger)
		return
	}
	models, err := h.provider.ListModels(r.Context())
	if err != nil {
		WriteError(w, types.NewError(types.ErrUpstreamError, "list models failed").
			WithCause(err).
			WithProvider(h.provider.Name()), h.logger)
		return
	}
	writeSuccessFor(w, r, models)
}
