// =============================================================================
// 📦 submind 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("SUBMIND").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/submind/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 submind 的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// LLM 补全网关配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Discussion 讨论引擎配置
	Discussion DiscussionConfig `yaml:"discussion" env:"DISCUSSION"`

	// Personas 参与者定义（仅文件）
	Personas []PersonaConfig `yaml:"personas" env:"-"`

	// Store 讨论归档配置
	Store StoreConfig `yaml:"store" env:"STORE"`

	// Export 文件导出配置
	Export ExportConfig `yaml:"export" env:"EXPORT"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时（流式讨论需要足够长）
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 单次讨论的最长运行时间
	DiscussionTimeout time.Duration `yaml:"discussion_timeout" env:"DISCUSSION_TIMEOUT"`
	// API 请求可设置的 max_rounds 上限，0 表示不限制
	MaxRoundsLimit int `yaml:"max_rounds_limit" env:"MAX_ROUNDS_LIMIT"`
	// 每个 IP 的限流
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// API Key 列表，为空时不鉴权
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// JWT HMAC 密钥，设置后接受 Bearer JWT
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	// CORS 允许的来源
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

// LLMConfig 补全网关配置
type LLMConfig struct {
	// Provider 名称，仅用于日志和指标
	Provider string `yaml:"provider" env:"PROVIDER"`
	// OpenAI 兼容端点，例如 LM Studio 或 OpenRouter
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// API Key（本地服务可为空）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 默认模型，persona 未指定时使用
	Model string `yaml:"model" env:"MODEL"`
	// 默认降级模型
	FallbackModels []string `yaml:"fallback_models" env:"FALLBACK_MODELS"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 端点是否支持 system 角色
	SystemRole bool `yaml:"system_role" env:"SYSTEM_ROLE"`
	// 对话打包方式: chat, flat
	DialogueMode string `yaml:"dialogue_mode" env:"DIALOGUE_MODE"`
	// 是否清理 [INST] 等模板残留
	Cleanup bool `yaml:"cleanup" env:"CLEANUP"`
	// 附加请求头（OpenRouter 的 HTTP-Referer 等）
	Headers map[string]string `yaml:"headers" env:"-"`
}

// DiscussionConfig 讨论引擎配置
type DiscussionConfig struct {
	MaxRounds              int           `yaml:"max_rounds" env:"MAX_ROUNDS"`
	ConsensusThreshold     float64       `yaml:"consensus_threshold" env:"CONSENSUS_THRESHOLD"`
	SmartTermination       bool          `yaml:"smart_termination" env:"SMART_TERMINATION"`
	MinResponsesPerPersona int           `yaml:"min_responses_per_persona" env:"MIN_RESPONSES_PER_PERSONA"`
	Markers                []string      `yaml:"markers" env:"MARKERS"`
	Similarity             string        `yaml:"similarity" env:"SIMILARITY"`
	GenerationRetries      int           `yaml:"generation_retries" env:"GENERATION_RETRIES"`
	RetryBackoff           time.Duration `yaml:"retry_backoff" env:"RETRY_BACKOFF"`
	DelayBetweenPersonas   time.Duration `yaml:"delay_between_personas" env:"DELAY_BETWEEN_PERSONAS"`
	ConcurrentOpening      bool          `yaml:"concurrent_opening" env:"CONCURRENT_OPENING"`
	// 默认激活的 persona，为空表示全部
	Active []string `yaml:"active" env:"ACTIVE"`
}

// StoreConfig 讨论归档配置
type StoreConfig struct {
	// 类型: none, memory, file, redis, postgres, mysql, sqlite
	Type string `yaml:"type" env:"TYPE"`
	// file 存储目录
	Dir string `yaml:"dir" env:"DIR"`
	// 归档过期时间（redis），0 表示永不过期
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// Redis 配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
	// Database SQL 数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// Key 前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 是否启用 TLS
	TLS bool `yaml:"tls" env:"TLS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// ExportConfig 文件导出配置
type ExportConfig struct {
	// 是否在讨论结束后自动导出
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 输出目录
	Dir string `yaml:"dir" env:"DIR"`
	// 文件名前缀
	Prefix string `yaml:"prefix" env:"PREFIX"`
	// 格式: json, markdown
	Formats []string `yaml:"formats" env:"FORMATS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "SUBMIND",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体（time.Duration 除外），递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			out := parts[:0]
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			field.Set(reflect.ValueOf(out))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载并验证配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithValidator((*Config).Validate).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

var (
	storeTypes    = []string{"none", "memory", "file", "redis", "postgres", "mysql", "sqlite"}
	logLevels     = []string{"debug", "info", "warn", "error"}
	dialogueModes = []string{"chat", "flat"}
	exportFormats = []string{"json", "markdown"}
)

// Validate 验证配置，返回所有问题
func (c *Config) Validate() error {
	var errs []error

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid http_port %d", c.Server.HTTPPort))
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid metrics_port %d", c.Server.MetricsPort))
	}
	if c.Server.MaxRoundsLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid max_rounds_limit %d", c.Server.MaxRoundsLimit))
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		errs = append(errs, errors.New("llm.base_url is required"))
	}
	if !slices.Contains(dialogueModes, c.LLM.DialogueMode) {
		errs = append(errs, fmt.Errorf("unknown llm.dialogue_mode %q", c.LLM.DialogueMode))
	}
	if err := c.Discussion.Orchestrator().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Roster(); err != nil {
		errs = append(errs, err)
	} else if _, err := c.ActivePersonas(nil); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(storeTypes, c.Store.Type) {
		errs = append(errs, fmt.Errorf("unknown store.type %q", c.Store.Type))
	}
	for _, f := range c.Export.Formats {
		if !slices.Contains(exportFormats, f) {
			errs = append(errs, fmt.Errorf("unknown export format %q", f))
		}
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return types.NewConfigurationError("config validation errors: %v", errors.Join(errs...))
	}
	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
