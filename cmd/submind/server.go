package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/BaSui01/submind/api/handlers"
	"github.com/BaSui01/submind/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 submind 的 HTTP 服务
type Server struct {
	app    *App
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// Handlers
	healthHandler     *handlers.HealthHandler
	discussionHandler *handlers.DiscussionHandler
	infoHandler       *handlers.InfoHandler

	// /metrics 暴露的指标来源
	gatherer prometheus.Gatherer

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(app *App, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		app:      app,
		logger:   logger,
		gatherer: prometheus.DefaultGatherer,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化 Handlers
	s.initHandlers()

	// 2. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 3. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.app.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.app.cfg.Server.MetricsPort),
		zap.Bool("auth_enabled", len(s.app.cfg.Server.APIKeys) > 0 || s.app.cfg.Server.JWTSecret != ""),
	)
	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	cfg := s.app.cfg

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewProviderCheck(s.app.provider))
	s.healthHandler.RegisterCheck(handlers.NewFuncCheck("store", s.app.store.Ping))

	s.discussionHandler = handlers.NewDiscussionHandler(s.app.orch, cfg, s.app.store, s.logger,
		handlers.WithArchiver(s.app.archiver),
		handlers.WithOriginPatterns(originPatterns(cfg.Server.AllowedOrigins)...),
	)
	s.infoHandler = handlers.NewInfoHandler(cfg, s.app.provider, s.logger)
}

// routes 构建路由与中间件链
func (s *Server) routes(rateLimiterCtx context.Context) http.Handler {
	cfg := s.app.cfg
	mux := http.NewServeMux()

	// 健康检查与版本
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 讨论
	mux.HandleFunc("POST /api/v1/discussions", s.discussionHandler.HandleCreate)
	mux.HandleFunc("POST /api/v1/discussions/stream", s.discussionHandler.HandleStream)
	mux.HandleFunc("GET /api/v1/discussions/ws", s.discussionHandler.HandleWebSocket)
	mux.HandleFunc("GET /api/v1/discussions", s.discussionHandler.HandleList)
	mux.HandleFunc("GET /api/v1/discussions/{id}", s.discussionHandler.HandleGet)
	mux.HandleFunc("DELETE /api/v1/discussions/{id}", s.discussionHandler.HandleDelete)

	// 元信息
	mux.HandleFunc("GET /api/v1/personas", s.infoHandler.HandlePersonas)
	mux.HandleFunc("GET /api/v1/config", s.infoHandler.HandleConfig)
	mux.HandleFunc("GET /api/v1/models", s.infoHandler.HandleModels)

	skipAuthPaths := []string{"/health", "/ready", "/version", "/metrics"}
	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		MetricsMiddleware(s.app.collector),
		RequestLogger(s.logger),
		CORS(cfg.Server.AllowedOrigins),
		RateLimiter(rateLimiterCtx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, s.logger),
		Auth(cfg.Server.APIKeys, cfg.Server.JWTSecret, skipAuthPaths, s.logger),
	)
}

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	serverConfig := server.FromServerConfig(s.app.cfg.Server.HTTPPort, s.app.cfg.Server)
	s.httpManager = server.NewManager(s.routes(rateLimiterCtx), serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.app.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器。端口为 0 时不启动。
func (s *Server) startMetricsServer() error {
	if s.app.cfg.Server.MetricsPort == 0 {
		s.logger.Info("Metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	serverConfig := server.FromServerConfig(s.app.cfg.Server.MetricsPort, s.app.cfg.Server)
	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.app.cfg.Server.MetricsPort))
	return nil
}

// originPatterns 把 CORS 来源转换为 WebSocket 握手允许的 host 模式
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if rest, ok := strings.CutPrefix(o, "https://"); ok {
			o = rest
		} else if rest, ok := strings.CutPrefix(o, "http://"); ok {
			o = rest
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown(ctx context.Context) {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown(ctx)
	}
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 0. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭存储与遥测
	if err := s.app.Close(ctx); err != nil {
		s.logger.Error("App shutdown error", zap.Error(err))
	}

	s.logger.Info("Graceful shutdown completed")
}
