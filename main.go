// main.go
//
// Process wiring: .env, log level, configuration, database, session store,
// HTTP server and the idle-session pruner, all stopped together on SIGINT/SIGTERM.

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/mathstrike/assets"
	"github.com/robalobadob/mathstrike/internal/config"
	"github.com/robalobadob/mathstrike/internal/httpserver"
	"github.com/robalobadob/mathstrike/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	levels, source, err := cfg.LoadLevels()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load levels")
	}
	log.Info().Str("source", source).Int("levels", len(levels)).Msg("levels loaded")

	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()
	if err := migrate(db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	mainCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := httpserver.New(cfg, levels, store.NewMemoryStore(), db)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return mainCtx },
	}

	g, gCtx := errgroup.WithContext(mainCtx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("starting mathstrike server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(ctx)
	})
	g.Go(func() error {
		return prune(gCtx, srv, cfg.SessionTTL)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
	log.Info().Msg("bye")
}

// prune drops sessions idle for longer than ttl until ctx is done.
func prune(ctx context.Context, srv *httpserver.Server, ttl time.Duration) error {
	tick := time.NewTicker(max(ttl/4, time.Second))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tick.C:
			n, err := srv.Prune(ctx, now.Add(-ttl))
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("prune sessions")
				continue
			}
			if n > 0 {
				log.Info().Int("pruned", n).Msg("idle sessions dropped")
			}
		}
	}
}
