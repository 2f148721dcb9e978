package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/padelhub/gamenight/go/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := setupStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up storage")
	}
	defer closeStore()

	services, err := setupServices(ctx, cfg, st, clockwork.NewRealClock())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	server := setupServer(cfg.Server, services)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return services.Hub.Run(gctx) })
	g.Go(func() error { return services.Dispatcher.Run(gctx) })
	g.Go(func() error { return services.Scheduler.Run(gctx) })
	g.Go(func() error { return serve(gctx, server, cfg.Server.ShutdownTimeout) })

	log.Info().
		Str("addr", server.Addr).
		Str("storage", cfg.Storage.Driver).
		Str("auth", cfg.Auth.Mode).
		Msg("game night server starting")

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("game night server stopped with error")
		return
	}
	log.Info().Msg("game night server shutdown complete")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
