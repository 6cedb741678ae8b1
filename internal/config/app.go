package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/streamsh/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"STREAMSH_RUNTIME_PATH" envDefault:".streamsh"`

	// Transport Flags
	EnableTCP   bool   `env:"STREAMSH_ENABLE_TCP" envDefault:"true"`
	EnableStdio bool   `env:"STREAMSH_ENABLE_STDIO" envDefault:"false"`
	ListenAddr  string `env:"STREAMSH_LISTEN_ADDR" envDefault:"127.0.0.1:7023"`

	// Interpreter limits. LineMax bounds one command line in bytes, ArgMax
	// the number of tokens per line.
	LineMax int    `env:"STREAMSH_LINE_MAX" envDefault:"2048"`
	ArgMax  int    `env:"STREAMSH_ARG_MAX" envDefault:"32"`
	Prompt  string `env:"STREAMSH_PROMPT" envDefault:"shell> "`

	// ReadTimeoutMS bounds each transport read so stop requests are
	// observed promptly.
	ReadTimeoutMS int `env:"STREAMSH_READ_TIMEOUT_MS" envDefault:"20"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetEnvPath() string {
	return filepath.Join(c.RuntimePath, ".env")
}
