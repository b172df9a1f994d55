package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"arcade-arena/internal/config"
	"arcade-arena/internal/constants"
	"arcade-arena/internal/domain"
	"arcade-arena/internal/engine"
	fxmodules "arcade-arena/internal/fx"
	"arcade-arena/internal/metrics"
	"arcade-arena/internal/middleware"
	"arcade-arena/internal/server"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	arenaServer *server.ArenaServer,
	eng *engine.Engine,
	cfg *config.Config,
	m *metrics.Metrics,
	logger zerolog.Logger,
) {
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	router := arenaServer.Router()
	router.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(c.Handler(router))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepers := new(errgroup.Group)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()

			for _, game := range domain.Games() {
				game := game
				sweepers.Go(func() error {
					return runSweeper(sweepCtx, eng, game, cfg.MatchSweepInterval, logger)
				})
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			stopSweep()
			if err := sweepers.Wait(); err != nil {
				logger.Warn().Err(err).Msg("matchmaking sweeper exited with error")
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

// runSweeper periodically pairs waiting players for one game, covering
// callers that poll rather than match on join.
func runSweeper(ctx context.Context, eng *engine.Engine, game string, interval time.Duration, logger zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			created, err := eng.ProcessMatchmaking(game)
			if err != nil {
				logger.Error().Err(err).Str("game", game).Msg("matchmaking sweep failed")
				continue
			}
			if created > 0 {
				logger.Info().Str("game", game).Int("matches", created).Msg("matchmaking sweep created matches")
			}
		}
	}
}
