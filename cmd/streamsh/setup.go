package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sandevgo/streamsh/internal/builtin"
	"github.com/sandevgo/streamsh/internal/config"
	"github.com/sandevgo/streamsh/internal/transport/stdio"
	"github.com/sandevgo/streamsh/internal/transport/tcpsh"
	"github.com/sandevgo/streamsh/pkg/log"
	"github.com/sandevgo/streamsh/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)

	// 2. Command table. Lookup depends on strict name order, so the table
	// is validated here at the integration point, not on the hot path.
	table := builtin.Table(time.Now())
	if err := table.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid command table")
	}

	// 3. Transports
	services := make([]srv.Service, 0, 2)
	if appCfg.EnableTCP {
		services = append(services, tcpsh.NewServer(appCfg, table))
	}
	if appCfg.EnableStdio {
		services = append(services, stdio.NewService(appCfg, table))
	}
	if len(services) == 0 {
		logger.Fatal().Msg("no transport enabled; set STREAMSH_ENABLE_TCP or STREAMSH_ENABLE_STDIO")
	}

	return services
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
