package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guess-character/internal/config"
	"guess-character/internal/db"
	"guess-character/internal/logging"
	"guess-character/internal/server"
	"guess-character/internal/store"

	"github.com/rs/zerolog/log"
)

func main() {
	dotenvErr := config.LoadDotEnv(".env")
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if dotenvErr != nil {
		log.Warn().Err(dotenvErr).Msg("failed to load .env")
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database setup failed")
	}

	srv := server.New(st, cfg)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("guess-character server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	srv.Close()
}

// openStore uses postgres when DATABASE_URL is set and an in-memory store
// otherwise.
func openStore(cfg config.Config) (store.Store, error) {
	conn, err := db.Open(db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
		ConnMaxIdleTime: cfg.ConnMaxIdleTime(),
	})
	if errors.Is(err, db.ErrNotConfigured) {
		log.Warn().Msg("DATABASE_URL is not set; using in-memory storage")
		return store.NewMemory(), nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(conn); err != nil {
			return nil, err
		}
	}
	return store.NewGorm(conn), nil
}
