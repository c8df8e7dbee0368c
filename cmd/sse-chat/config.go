package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/likerRr/sse-express/internal/chat"
)

// Config holds sse-chat server configuration.
type Config struct {
	Addr        string        `mapstructure:"addr"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
	Retry       time.Duration `mapstructure:"retry"`
	HistoryTTL  time.Duration `mapstructure:"history_ttl"`
	ClientQueue int           `mapstructure:"client_queue"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`
}

// loadConfig reads configuration from an optional file, environment
// variables prefixed with SSE_ (a .env file is loaded if present) and
// defaults, environment having the highest precedence.
func loadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("heartbeat", 3*time.Second)
	v.SetDefault("retry", 3*time.Second)
	v.SetDefault("history_ttl", 5*time.Minute)
	v.SetDefault("client_queue", chat.DefaultQueueSize)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("SSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.HistoryTTL <= 0 {
		return Config{}, fmt.Errorf("history_ttl must be positive, got %s", cfg.HistoryTTL)
	}
	return cfg, nil
}

func newLogger(cfg Config) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return log, nil
}
