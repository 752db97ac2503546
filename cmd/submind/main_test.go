package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/BaSui01/submind/config"
	"github.com/BaSui01/submind/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LogConfig
		level zapcore.Level
	}{
		{"json info", config.LogConfig{Level: "info", Format: "json"}, zapcore.InfoLevel},
		{"console debug", config.LogConfig{Level: "debug", Format: "console"}, zapcore.DebugLevel},
		{"upper case warn", config.LogConfig{Level: "WARN", Format: "json"}, zapcore.WarnLevel},
		{"error", config.LogConfig{Level: "error", OutputPaths: []string{"stderr"}}, zapcore.ErrorLevel},
		{"unknown falls back to info", config.LogConfig{Level: "verbose"}, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := initLogger(tt.cfg)
			require.NotNil(t, logger)
			assert.True(t, logger.Core().Enabled(tt.level))
			if tt.level > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.level-1))
			}
		})
	}
}

func TestInitLogger_BadOutputFallsBack(t *testing.T) {
	logger := initLogger(config.LogConfig{Level: "info", OutputPaths: []string{"/nonexistent-dir/x/y.log"}})
	require.NotNil(t, logger)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"Alpha", "Beta"}, splitList(" Alpha, ,Beta "))
}

func TestPrintUsageAndVersion(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	for _, cmd := range []string{"serve", "run", "personas", "health", "version"} {
		assert.Contains(t, buf.String(), cmd)
	}

	buf.Reset()
	printVersion(&buf)
	assert.Contains(t, buf.String(), "submind "+Version)
	assert.Contains(t, buf.String(), "Git Commit: "+GitCommit)
}

func TestCheckGateway(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		var buf bytes.Buffer
		provider := mocks.NewMockProvider().WithName("lmstudio").WithModels("llama-3", "qwen")
		require.NoError(t, checkGateway(context.Background(), provider, &buf))
		assert.Contains(t, buf.String(), "Gateway lmstudio OK")
		assert.Contains(t, buf.String(), "- llama-3")
		assert.Contains(t, buf.String(), "- qwen")
	})

	t.Run("unreachable", func(t *testing.T) {
		provider := mocks.NewMockProvider().WithHealthError(assert.AnError)
		err := checkGateway(context.Background(), provider, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unreachable")
	})

	t.Run("no models", func(t *testing.T) {
		provider := mocks.NewMockProvider().WithModels()
		assert.Error(t, checkGateway(context.Background(), provider, &bytes.Buffer{}))
	})
}

func TestCheckServer(t *testing.T) {
	var ready atomic.Bool
	ready.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ready", r.URL.Path)
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	require.NoError(t, checkServer(context.Background(), srv.URL+"/", &buf))
	assert.Equal(t, "OK\n", buf.String())

	ready.Store(false)
	err := checkServer(context.Background(), srv.URL, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestRunPersonas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
personas:
  - id: Alpha
    role: optimist
    instructions: Look on the bright side.
  - id: Beta
    role: pessimist
    instructions: Expect the worst.
  - id: Gamma
    role: realist
    instructions: Stick to the facts.
  - id: Delta
    role: retired
    instructions: Unused.
    disabled: true
discussion:
  active: [Alpha, Beta]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	var buf bytes.Buffer
	require.NoError(t, runPersonas([]string{"--config", path}, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Alpha (optimist) [active]", lines[0])
	assert.Equal(t, "Beta (pessimist) [active]", lines[1])
	assert.Equal(t, "Gamma (realist) [inactive]", lines[2])
	assert.Equal(t, "Delta (retired) [disabled]", lines[3])
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: cassandra\n"), 0o600))
	_, err := loadConfig(path)
	assert.Error(t, err)
}
