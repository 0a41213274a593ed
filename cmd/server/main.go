/*
main.go - Keg deposit ledger server entrypoint

STARTUP SEQUENCE:
  1. Load configuration (env-first, optional local file)
  2. Build the logger
  3. Open SQLite and run migrations
  4. Seed the beer catalog (no-op for names already present)
  5. Serve HTTP until SIGINT/SIGTERM, then drain for up to 30s
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kegtracer/engine/api"
	"github.com/kegtracer/engine/config"
	"github.com/kegtracer/engine/ledger"
	"github.com/kegtracer/engine/logging"
	"github.com/kegtracer/engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.New(logging.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	log.Info().Str("env", cfg.App.Env).Str("db", cfg.DB.Path).Msg("starting kegtracer")

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	ctx := context.Background()
	seeded, err := ledger.SeedCatalog(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed catalog")
	}
	if seeded > 0 {
		log.Info().Int("beers", seeded).Msg("seeded catalog")
	}

	svc := ledger.NewService(db, ledger.WithDuplicateWindow(cfg.Keg.DuplicateWindow))
	handler := api.NewHandler(svc, log)
	router := api.NewRouter(handler, log, cfg.HTTP.CORSOrigins)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server failed")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
	log.Info().Msg("stopped")
}
