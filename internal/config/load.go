// Package config defines environment configuration structs and loaders.
package config

import (
	"context"
	"errors"
	"io/fs"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type AppConfig struct {
	LoggingEnvConfig
	EvalEnvConfig
}

// LoggingEnvConfig selects the log level.
type LoggingEnvConfig struct {
	Environment string `env:"ENVIRONMENT, default=prod"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// EvalEnvConfig holds evaluation defaults that CLI flags may override.
type EvalEnvConfig struct {
	Workers    int      `env:"FASTRANK_WORKERS, default=0"`
	Measures   []string `env:"FASTRANK_MEASURES, default=ndcg@10,ap,rr"`
	SystemName string   `env:"FASTRANK_SYSTEM, default=fastrank"`
	RunDepth   int      `env:"FASTRANK_RUN_DEPTH, default=1000"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig(ctx context.Context) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	cfg.Environment = strings.ToLower(cfg.Environment)
	for i, m := range cfg.Measures {
		cfg.Measures[i] = strings.TrimSpace(m)
	}
	return cfg, nil
}

// EffectiveWorkers returns Workers, or GOMAXPROCS when unset.
func (c *EvalEnvConfig) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
