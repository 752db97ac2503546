// =============================================================================
// 📦 submind 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		LLM:        DefaultLLMConfig(),
		Discussion: DefaultDiscussionConfig(),
		Personas:   DefaultPersonas(),
		Store:      DefaultStoreConfig(),
		Export:     DefaultExportConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:          8080,
		MetricsPort:       9091,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      15 * time.Minute,
		ShutdownTimeout:   15 * time.Second,
		DiscussionTimeout: 10 * time.Minute,
		MaxRoundsLimit:    20,
		RateLimitRPS:      10,
		RateLimitBurst:    20,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置（本地 LM Studio）
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:     "lmstudio",
		BaseURL:      "http://localhost:1234",
		Model:        "local-model",
		Timeout:      2 * time.Minute,
		SystemRole:   true,
		DialogueMode: "chat",
		Cleanup:      true,
	}
}

// DefaultDiscussionConfig 返回默认讨论配置
func DefaultDiscussionConfig() DiscussionConfig {
	return DiscussionConfig{
		MaxRounds:              3,
		ConsensusThreshold:     0.7,
		SmartTermination:       true,
		MinResponsesPerPersona: 1,
		Similarity:             "jaccard",
		RetryBackoff:           time.Second,
	}
}

// DefaultStoreConfig 返回默认归档配置
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type: "memory",
		Dir:  "./data/discussions",
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			KeyPrefix:    "submind:",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "submind",
			Name:            "submind",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
	}
}

// DefaultExportConfig 返回默认导出配置
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Enabled: false,
		Dir:     "./exports",
		Prefix:  "discussion",
		Formats: []string{"json", "markdown"},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "submind",
		SampleRate:   0.1,
	}
}
