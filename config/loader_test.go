// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BaSui01/submind/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "http://localhost:1234", cfg.LLM.BaseURL)
	assert.Len(t, cfg.Personas, 5)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s
llm:
  base_url: "https://openrouter.ai/api"
  api_key: "sk-test"
  model: "mistralai/mistral-7b-instruct"
  fallback_models: ["meta-llama/llama-3-8b-instruct"]
  system_role: false
  headers:
    HTTP-Referer: "https://example.com"
discussion:
  max_rounds: 5
  consensus_threshold: 0.8
  similarity: cosine
personas:
  - id: Optimist
    role: optimist
    instructions: "See the upside."
    color: yellow
  - id: Pessimist
    role: pessimist
    instructions: "See the downside."
    temperature: 1.1
    model: "special-model"
store:
  type: file
  dir: /tmp/submind
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o600))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 9091, cfg.Server.MetricsPort, "untouched fields keep defaults")
	assert.Equal(t, "https://openrouter.ai/api", cfg.LLM.BaseURL)
	assert.False(t, cfg.LLM.SystemRole)
	assert.Equal(t, "https://example.com", cfg.LLM.Headers["HTTP-Referer"])
	assert.Equal(t, 5, cfg.Discussion.MaxRounds)
	assert.Equal(t, "cosine", cfg.Discussion.Similarity)
	assert.Equal(t, "file", cfg.Store.Type)
	require.Len(t, cfg.Personas, 2, "file personas replace the defaults")

	roster, err := cfg.Roster()
	require.NoError(t, err)
	opt, ok := roster.Get("Optimist")
	require.True(t, ok)
	assert.Equal(t, "mistralai/mistral-7b-instruct", opt.Model)
	assert.Equal(t, []string{"meta-llama/llama-3-8b-instruct"}, opt.FallbackModels)
	assert.Equal(t, 0.7, opt.Params.Temperature)
	assert.Equal(t, 500, opt.Params.MaxTokens)
	pes, _ := roster.Get("Pessimist")
	assert.Equal(t, "special-model", pes.Model)
	assert.Equal(t, 1.1, pes.Params.Temperature)

	require.NoError(t, cfg.Validate())
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Discussion.MaxRounds)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0o600))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("SUBMIND_SERVER_HTTP_PORT", "9000")
	t.Setenv("SUBMIND_LLM_BASE_URL", "http://gpu-box:1234")
	t.Setenv("SUBMIND_LLM_TIMEOUT", "45s")
	t.Setenv("SUBMIND_DISCUSSION_CONSENSUS_THRESHOLD", "0.9")
	t.Setenv("SUBMIND_DISCUSSION_SMART_TERMINATION", "false")
	t.Setenv("SUBMIND_DISCUSSION_ACTIVE", "Skeptic, Creative")
	t.Setenv("SUBMIND_STORE_REDIS_ADDR", "redis:6380")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "http://gpu-box:1234", cfg.LLM.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 0.9, cfg.Discussion.ConsensusThreshold)
	assert.False(t, cfg.Discussion.SmartTermination)
	assert.Equal(t, []string{"Skeptic", "Creative"}, cfg.Discussion.Active)
	assert.Equal(t, "redis:6380", cfg.Store.Redis.Addr)

	active, err := cfg.ActivePersonas(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Creative", "Skeptic"}, []string{active[0].ID, active[1].ID})
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("DEBATE_LOG_LEVEL", "debug")
	cfg, err := NewLoader().WithEnvPrefix("DEBATE").Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_BadEnvValue(t *testing.T) {
	t.Setenv("SUBMIND_DISCUSSION_MAX_ROUNDS", "many")
	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_ValidatorRuns(t *testing.T) {
	t.Setenv("SUBMIND_DISCUSSION_MAX_ROUNDS", "0")
	_, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }},
		{"negative rounds limit", func(c *Config) { c.Server.MaxRoundsLimit = -1 }},
		{"no base url", func(c *Config) { c.LLM.BaseURL = " " }},
		{"bad dialogue mode", func(c *Config) { c.LLM.DialogueMode = "xml" }},
		{"bad threshold", func(c *Config) { c.Discussion.ConsensusThreshold = 0 }},
		{"one persona", func(c *Config) { c.Personas = c.Personas[:1] }},
		{"duplicate persona", func(c *Config) { c.Personas = append(c.Personas, c.Personas[0]) }},
		{"unknown active", func(c *Config) { c.Discussion.Active = []string{"Nobody"} }},
		{"single active", func(c *Config) { c.Discussion.Active = []string{"Skeptic"} }},
		{"bad store", func(c *Config) { c.Store.Type = "cassandra" }},
		{"bad export format", func(c *Config) { c.Export.Formats = []string{"pdf"} }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
		})
	}
}

func TestConfig_DisabledPersonasSkipped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Personas[0].Disabled = true

	roster, err := cfg.Roster()
	require.NoError(t, err)
	assert.Equal(t, 4, roster.Len())
	_, ok := roster.Get("Doctrinal")
	assert.False(t, ok)
}

func TestMustLoad(t *testing.T) {
	assert.NotPanics(t, func() { MustLoad("") })

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("discussion:\n  max_rounds: -1\n"), 0o600))
	assert.Panics(t, func() { MustLoad(configPath) })
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())

	d.Driver = "mysql"
	d.Port = 3306
	assert.Equal(t, "u:p@tcp(db:3306)/n?parseTime=true", d.DSN())

	d.Driver = "sqlite"
	assert.Equal(t, "n", d.DSN())

	d.Driver = "oracle"
	assert.Empty(t, d.DSN())
}
