// =============================================================================
// submind 主入口
// =============================================================================
// 多角色讨论服务入口，包含 HTTP 服务、命令行讨论、健康检查
//
// 使用方法:
//
//	submind serve                          # 启动服务
//	submind serve --config config.yaml     # 指定配置文件
//	submind run "Should we rewrite it?"    # 单次讨论
//	submind run                            # 交互模式
//	submind personas                       # 列出参与者
//	submind health                         # 检查 LLM 网关
//	submind health --addr http://host:8080 # 检查运行中的服务
//	submind version                        # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BaSui01/submind/config"
	"github.com/BaSui01/submind/llm"
	"github.com/BaSui01/submind/persona"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "run":
		err = runDiscussion(os.Args[2:])
	case "personas":
		err = runPersonas(os.Args[2:], os.Stdout)
	case "health":
		err = runHealthCheck(os.Args[2:], os.Stdout)
	case "version":
		printVersion(os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig 加载并验证配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader().WithValidator((*config.Config).Validate)
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	return loader.Load()
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting submind",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	app, err := NewApp(cfg, logger, appOptions{})
	if err != nil {
		return err
	}

	server := NewServer(app, logger)
	if err := server.Start(); err != nil {
		server.Shutdown()
		return err
	}

	// 等待关闭信号
	server.WaitForShutdown(context.Background())

	logger.Info("submind stopped")
	return nil
}

// =============================================================================
// 💬 run 命令
// =============================================================================

func runDiscussion(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	personaList := fs.String("personas", "", "Comma-separated persona ids (default: configured active set)")
	rounds := fs.Int("rounds", 0, "Override discussion.max_rounds")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	active, err := cfg.ActivePersonas(splitList(*personaList))
	if err != nil {
		return err
	}
	orchCfg := cfg.Discussion.Orchestrator()
	if *rounds > 0 {
		orchCfg.MaxRounds = *rounds
	}

	app, err := NewApp(cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	}()

	r := &runner{
		app:      app,
		personas: active,
		cfg:      orchCfg,
		printer:  NewPrinter(os.Stdout, active),
	}

	if prompt := strings.TrimSpace(strings.Join(fs.Args(), " ")); prompt != "" {
		_, err := r.discuss(context.Background(), prompt)
		return err
	}
	fmt.Printf("Discussing with %s. Type quit to leave, Ctrl-C cancels a running discussion.\n", strings.Join(persona.IDs(active), ", "))
	return r.interactive(context.Background(), os.Stdin, os.Stdout)
}

// =============================================================================
// 👥 personas 命令
// =============================================================================

func runPersonas(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("personas", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	active, err := cfg.ActivePersonas(nil)
	if err != nil {
		return err
	}
	printer := NewPrinter(out, active)
	activeSet := make(map[string]bool, len(active))
	for _, p := range active {
		activeSet[p.ID] = true
	}

	for _, pc := range cfg.Personas {
		status := "inactive"
		switch {
		case pc.Disabled:
			status = "disabled"
		case activeSet[pc.ID]:
			status = "active"
		}
		fmt.Fprintf(out, "%s (%s) [%s]\n", printer.speaker(pc.ID), pc.Role, status)
	}
	return nil
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	addr := fs.String("addr", "", "Check a running server instead of the LLM gateway")
	_ = fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if *addr != "" {
		return checkServer(ctx, *addr, out)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	return checkGateway(ctx, newProvider(cfg.LLM, zap.NewNop()), out)
}

// checkServer 请求运行中服务的 /ready
func checkServer(ctx context.Context, addr string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(addr, "/")+"/ready", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}
	fmt.Fprintln(out, "OK")
	return nil
}

// checkGateway 检查 LLM 网关可达并列出模型
func checkGateway(ctx context.Context, provider llm.Provider, out io.Writer) error {
	status, err := provider.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("gateway %s unreachable: %w", provider.Name(), err)
	}
	if status != nil && !status.Healthy {
		return fmt.Errorf("gateway %s unhealthy", provider.Name())
	}
	models, err := provider.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if len(models) == 0 {
		return errors.New("gateway reports no models")
	}

	fmt.Fprintf(out, "Gateway %s OK", provider.Name())
	if status != nil {
		fmt.Fprintf(out, " (%s)", status.Latency.Round(time.Millisecond))
	}
	fmt.Fprintln(out)
	for _, m := range models {
		fmt.Fprintf(out, "  - %s\n", m.ID)
	}
	return nil
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "submind %s\n", Version)
	fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `submind - multi-persona discussion engine

Usage:
  submind <command> [options]

Commands:
  serve      Start the HTTP server
  run        Run a discussion in the terminal (interactive without a prompt)
  personas   List configured personas
  health     Check the LLM gateway or a running server
  version    Show version information
  help       Show this help message

Options:
  --config <path>     Path to configuration file (YAML), all commands
  --personas <ids>    Comma-separated persona ids (run)
  --rounds <n>        Override the maximum number of rounds (run)
  --addr <url>        Server address to check (health)

Examples:
  submind serve --config /etc/submind/config.yaml
  submind run --personas Doctrinal,Skeptic "Is remote work here to stay?"
  submind health --addr http://localhost:8080
  submind version`)
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
