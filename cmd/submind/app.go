package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/submind/config"
	"github.com/BaSui01/submind/export"
	"github.com/BaSui01/submind/internal/metrics"
	"github.com/BaSui01/submind/internal/telemetry"
	"github.com/BaSui01/submind/llm"
	"github.com/BaSui01/submind/llm/providers/openaicompat"
	"github.com/BaSui01/submind/llm/tokenizer"
	"github.com/BaSui01/submind/orchestrator"
	"github.com/BaSui01/submind/persona"
	"github.com/BaSui01/submind/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// =============================================================================
// 🧩 应用组件装配
// =============================================================================

// App 持有 serve 与 run 共用的组件
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	provider  llm.Provider
	orch      *orchestrator.Orchestrator
	store     store.Store
	archiver  *Archiver
	collector *metrics.Collector
	telemetry *telemetry.Providers
}

// appOptions 控制装配细节，测试中用于替换 provider 与 registry
type appOptions struct {
	provider llm.Provider
	registry prometheus.Registerer
}

// NewApp 按配置装配 provider、网关、编排器、存储与导出器。
// telemetry 必须先于编排器初始化，编排器在创建时获取全局 tracer。
func NewApp(cfg *config.Config, logger *zap.Logger, opts appOptions) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logger}

	otelProviders, err := telemetry.Init(cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		otelProviders = &telemetry.Providers{}
	}
	app.telemetry = otelProviders

	reg := opts.registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	app.collector = metrics.NewCollectorWithRegistry("submind", reg, logger)

	app.provider = opts.provider
	if app.provider == nil {
		app.provider = newProvider(cfg.LLM, logger)
	}

	gw := persona.NewLLMGateway(app.provider,
		persona.WithDialogueMode(persona.DialogueMode(cfg.LLM.DialogueMode)),
		persona.WithSystemRole(cfg.LLM.SystemRole),
		persona.WithResponseCleanup(cfg.LLM.Cleanup),
		persona.WithGatewayLogger(logger),
	)

	app.orch = orchestrator.New(gw,
		orchestrator.WithLogger(logger),
		orchestrator.WithRecorder(app.collector),
		orchestrator.WithTokenizer(tokenizer.GetTokenizerOrEstimator(cfg.LLM.Model)),
	)

	st, err := store.New(cfg.Store, logger)
	if err != nil {
		_ = app.telemetry.Shutdown(context.Background())
		return nil, fmt.Errorf("open discussion store: %w", err)
	}
	backend := store.Type(cfg.Store.Type)
	if backend == "" {
		backend = store.TypeMemory
	}
	app.store = store.Instrument(st, backend, app.collector)

	var exporter *export.Exporter
	if cfg.Export.Enabled {
		formats, err := export.ParseFormats(cfg.Export.Formats)
		if err != nil {
			_ = app.Close(context.Background())
			return nil, fmt.Errorf("export formats: %w", err)
		}
		exporter = export.New(cfg.Export.Dir,
			export.WithPrefix(cfg.Export.Prefix),
			export.WithFormats(formats...),
			export.WithLogger(logger),
		)
	}
	app.archiver = NewArchiver(app.store, exporter, logger)

	return app, nil
}

func newProvider(cfg config.LLMConfig, logger *zap.Logger) llm.Provider {
	var fallback string
	if len(cfg.FallbackModels) > 0 {
		fallback = cfg.FallbackModels[0]
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName:  cfg.Provider,
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: fallback,
		Timeout:       cfg.Timeout,
		Headers:       cfg.Headers,
	}, logger)
}

// Close 关闭存储并刷新遥测数据
func (a *App) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}
