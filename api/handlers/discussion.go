package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/submind/api"
	"github.com/BaSui01/submind/config"
	"github.com/BaSui01/submind/export"
	"github.com/BaSui01/submind/internal/ctxkeys"
	"github.com/BaSui01/submind/orchestrator"
	"github.com/BaSui01/submind/store"
	"github.com/BaSui01/submind/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// archiveTimeout bounds the archive step after a discussion ends.
const archiveTimeout = 10 * time.Second

// wsHandshakeTimeout bounds the wait for the first WebSocket message.
const wsHandshakeTimeout = 30 * time.Second

// =============================================================================
// 💬 讨论接口 Handler
// =============================================================================

// Archiver persists a finished discussion. It returns the exported files by
// format name.
type Archiver interface {
	Archive(ctx context.Context, s *orchestrator.Summary) map[string]string
}

// DiscussionHandler 讨论接口处理器
type DiscussionHandler struct {
	orch     *orchestrator.Orchestrator
	cfg      *config.Config
	store    store.Store
	archiver Archiver
	origins  []string
	logger   *zap.Logger
}

// DiscussionOption configures a DiscussionHandler.
type DiscussionOption func(*DiscussionHandler)

// WithArchiver sets the archive step run after every discussion.
func WithArchiver(a Archiver) DiscussionOption {
	return func(h *DiscussionHandler) { h.archiver = a }
}

// WithOriginPatterns sets the host patterns accepted for cross-origin
// WebSocket upgrades.
func WithOriginPatterns(patterns ...string) DiscussionOption {
	return func(h *DiscussionHandler) { h.origins = patterns }
}

// NewDiscussionHandler 创建讨论处理器
func NewDiscussionHandler(orch *orchestrator.Orchestrator, cfg *config.Config, st store.Store, logger *zap.Logger, opts ...DiscussionOption) *DiscussionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if st == nil {
		st = store.NopStore{}
	}
	h := &DiscussionHandler{
		orch:   orch,
		cfg:    cfg,
		store:  st,
		logger: logger.With(zap.String("handler", "discussion")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleCreate 同步运行讨论并返回摘要
func (h *DiscussionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.DiscussionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	ctx, cancel := h.discussionContext(r.Context())
	defer cancel()

	d, err := h.start(ctx, &req)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	summary, runErr := d.Run(nil)
	exports := h.archive(r.Context(), d)
	if runErr != nil {
		writeAnyError(w, runErr, h.logger)
		return
	}

	writeSuccessFor(w, r, api.DiscussionResponse{Discussion: summary, Exports: exports})
}

// HandleStream 以 SSE 推送讨论事件
func (h *DiscussionHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.DiscussionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, types.NewError(types.ErrInternalError, "streaming not supported"), h.logger)
		return
	}

	ctx, cancel := h.discussionContext(r.Context())
	defer cancel()

	d, err := h.start(ctx, &req)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range d.Events() {
		if err := writeSSE(w, string(ev.Type), ev); err != nil {
			h.logger.Warn("stream write failed",
				zap.String("discussion_id", d.ID()),
				zap.Error(err))
			break
		}
		flusher.Flush()
	}

	h.archive(r.Context(), d)

	_, _ = w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

// HandleWebSocket 通过 WebSocket 推送讨论事件。客户端的第一条消息是
// DiscussionRequest，之后可以发送 {"type":"cancel"} 取消讨论。
func (h *DiscussionHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := h.discussionContext(r.Context())
	defer cancel()

	var req api.DiscussionRequest
	readCtx, readCancel := context.WithTimeout(ctx, wsHandshakeTimeout)
	err = wsjson.Read(readCtx, conn, &req)
	readCancel()
	if err != nil {
		h.logger.Warn("websocket request read failed", zap.Error(err))
		conn.Close(websocket.StatusPolicyViolation, "expected a discussion request")
		return
	}

	d, err := h.start(ctx, &req)
	if err != nil {
		apiErr := toAPIError(err)
		_ = wsjson.Write(ctx, conn, Response{
			Success:   false,
			Error:     &ErrorInfo{Code: string(apiErr.Code), Message: apiErr.Message},
			Timestamp: time.Now(),
		})
		conn.Close(websocket.StatusPolicyViolation, "invalid discussion request")
		return
	}

	go h.readCommands(ctx, conn, d)

	for ev := range d.Events() {
		if err := wsjson.Write(ctx, conn, ev); err != nil {
			h.logger.Warn("websocket write failed",
				zap.String("discussion_id", d.ID()),
				zap.Error(err))
			break
		}
	}

	h.archive(r.Context(), d)
	conn.Close(websocket.StatusNormalClosure, string(d.State()))
}

// readCommands 处理客户端命令，连接断开时取消讨论
func (h *DiscussionHandler) readCommands(ctx context.Context, conn *websocket.Conn, d *orchestrator.Discussion) {
	for {
		var cmd api.StreamCommand
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			d.Cancel()
			return
		}
		switch strings.ToLower(strings.TrimSpace(cmd.Type)) {
		case api.CommandCancel:
			h.logger.Info("discussion cancelled by client", zap.String("discussion_id", d.ID()))
			d.Cancel()
		default:
			h.logger.Debug("ignoring websocket command", zap.String("type", cmd.Type))
		}
	}
}

// HandleList 列出归档的讨论
func (h *DiscussionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "limit must be a non-negative integer", h.logger)
		return
	}
	offset, err := queryInt(q.Get("offset"))
	if err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "offset must be a non-negative integer", h.logger)
		return
	}

	opts := store.ListOptions{Limit: limit, Offset: offset, State: orchestrator.State(q.Get("state"))}
	items, err := h.store.List(r.Context(), opts)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}
	if opts.Limit == 0 {
		opts.Limit = 50
	}
	writeSuccessFor(w, r, api.DiscussionList{Discussions: items, Limit: opts.Limit, Offset: offset})
}

// HandleGet 获取单个归档讨论，format=markdown|json 返回导出格式
func (h *DiscussionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "":
		writeSuccessFor(w, r, s)
	case string(export.FormatMarkdown), "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(export.RenderMarkdown(s)))
	case string(export.FormatJSON):
		data, err := export.RenderJSON(s)
		if err != nil {
			writeAnyError(w, err, h.logger)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "unknown format: "+format, h.logger)
	}
}

// HandleDelete 删除归档讨论
func (h *DiscussionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, id, err)
		return
	}
	writeSuccessFor(w, r, map[string]string{"id": id})
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func (h *DiscussionHandler) start(ctx context.Context, req *api.DiscussionRequest) (*orchestrator.Discussion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "prompt is required")
	}
	if limit := h.cfg.Server.MaxRoundsLimit; limit > 0 && req.MaxRounds != nil && *req.MaxRounds > limit {
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("max_rounds %d exceeds the server limit of %d", *req.MaxRounds, limit))
	}
	personas, err := h.cfg.ActivePersonas(req.Personas)
	if err != nil {
		return nil, err
	}
	d, err := h.orch.Start(ctx, req.Prompt, personas, req.Apply(h.cfg.Discussion.Orchestrator()))
	if err != nil {
		return nil, err
	}
	h.logger.Info("discussion accepted",
		append(ctxkeys.Fields(ctx),
			zap.String("discussion_id", d.ID()),
			zap.Int("personas", len(personas)))...)
	return d, nil
}

func (h *DiscussionHandler) discussionContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.cfg.Server.DiscussionTimeout > 0 {
		return context.WithTimeout(parent, h.cfg.Server.DiscussionTimeout)
	}
	return context.WithCancel(parent)
}

// archive 不随请求取消，最长等待 archiveTimeout
func (h *DiscussionHandler) archive(parent context.Context, d *orchestrator.Discussion) map[string]string {
	if h.archiver == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), archiveTimeout)
	defer cancel()
	return h.archiver.Archive(ctx, d.Report())
}

func (h *DiscussionHandler) lookup(w http.ResponseWriter, r *http.Request) (*orchestrator.Summary, bool) {
	id := r.PathValue("id")
	s, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, id, err)
		return nil, false
	}
	return s, true
}

func (h *DiscussionHandler) writeStoreError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidInput):
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "discussion not found: "+id, h.logger)
	case errors.Is(err, store.ErrStoreClosed):
		WriteError(w, types.NewError(types.ErrServiceUnavailable, "archive unavailable").WithCause(err), h.logger)
	default:
		writeAnyError(w, err, h.logger)
	}
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}

// writeSSE 写入一个 SSE 事件，数据经 json.Marshal 转义
func writeSSE(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + event + "\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
