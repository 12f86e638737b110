package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/shashkrid/assets"
	"github.com/robalobadob/shashkrid/internal/config"
	"github.com/robalobadob/shashkrid/internal/gameserver"
	"github.com/robalobadob/shashkrid/internal/httpserver"
	"github.com/robalobadob/shashkrid/internal/layout"
	"github.com/robalobadob/shashkrid/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	config.ApplyLogLevel(cfg.LogLevel)

	deployment, err := layout.Load(cfg.LayoutFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.LayoutFile).Msg("failed to load layout")
	}

	standings, err := openStandings(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open standings")
	}
	defer standings.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	games, err := gameserver.New(gameserver.Options{
		Rules:      cfg.Rules(),
		Deployment: deployment,
		Standings:  standings,
		Metrics:    gameserver.NewMetrics(reg),
		MaxQueued:  cfg.MaxQueued,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid game setup")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ln, err := net.Listen("tcp", cfg.GameAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.GameAddr, err)
		}
		log.Info().Str("addr", ln.Addr().String()).
			Int("actionsPerTurn", cfg.ActionsPerTurn).
			Int("turnLimit", cfg.TurnLimit).
			Msg("starting shashkrid")
		return games.Serve(ctx, ln)
	})
	if cfg.HTTPEnabled() {
		ops := httpserver.New(httpserver.Options{
			Games:             games,
			Standings:         standings,
			Gatherer:          reg,
			ClientOrigin:      cfg.ClientOrigin,
			JWTSecret:         cfg.JWTSecret,
			AdminPasswordHash: cfg.AdminPasswordHash,
			TokenTTL:          cfg.TokenTTL,
		})
		g.Go(func() error { return ops.Serve(ctx, cfg.HTTPAddr) })
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited")
		standings.Close()
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}

// openStandings picks SQLite when a path is configured, memory otherwise.
func openStandings(path string) (store.Store, error) {
	if path == "" {
		log.Info().Msg("standings kept in memory")
		return store.NewMemoryStore(), nil
	}
	return store.OpenSQLite(path, assets.Migrations())
}
