package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, Config{
		Addr:        ":8080",
		Heartbeat:   3 * time.Second,
		Retry:       3 * time.Second,
		HistoryTTL:  5 * time.Minute,
		ClientQueue: 64,
		CORSOrigins: []string{"*"},
		LogLevel:    "info",
		LogFormat:   "text",
	}, cfg)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
heartbeat: 15s
retry: 500ms
log_format: json
`), 0o600))

	t.Setenv("SSE_RETRY", "2s")
	t.Setenv("SSE_LOG_LEVEL", "debug")
	t.Setenv("SSE_CLIENT_QUEUE", "8")

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 15*time.Second, cfg.Heartbeat)
	assert.Equal(t, 2*time.Second, cfg.Retry)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 8, cfg.ClientQueue)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	t.Setenv("SSE_HISTORY_TTL", "0s")
	_, err = loadConfig("")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(Config{LogLevel: "debug", LogFormat: "json"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	_, err = newLogger(Config{LogLevel: "loud", LogFormat: "json"})
	assert.Error(t, err)

	_, err = newLogger(Config{LogLevel: "info", LogFormat: "xml"})
	assert.Error(t, err)
}
