package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/server"
	"github.com/driftline/driftline/internal/storage/sqlite"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.LoadServerConfig()

	fs := pflag.NewFlagSet("driftline-server", pflag.ContinueOnError)
	var (
		listenAddr = fs.StringP("listen-addr", "a", cfg.ListenAddr, "listen address")
		dbPath     = fs.StringP("db-path", "d", cfg.Database.Path, "sqlite database path")
		logLevel   = fs.StringP("log-level", "l", cfg.LogLevel, "log level")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse command line arguments")
	}
	cfg.ListenAddr = *listenAddr
	cfg.Database.Path = *dbPath

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse log level")
	}
	logger = logger.Level(lvl)

	store, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	app := server.NewApp(cfg, store, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
