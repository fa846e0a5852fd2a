package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/api"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/messaging"
	"github.com/parley-chat/parley/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// User registry: PostgreSQL in production, SQLite fallback for local
	// development without a database.
	var users store.DataStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		users = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		defer sqliteStore.Close()
		users = sqliteStore
		logger.Info().Msg("using SQLite user registry")
	}

	// Key/value store: Redis in production, in-process fallback for local
	// development. The memory store cannot serve more than one instance.
	var (
		kv         store.KVStore
		redisStore *store.RedisStore
		indexer    messaging.Indexer
	)
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		kv = redisStore
		indexer = redisStore
		logger.Info().Msg("connected to Redis")
	} else {
		kv = store.NewMemoryStore()
		logger.Warn().Msg("using in-memory KV store; single instance only")
	}

	// Messaging core. The sanitizer is the resident pre-persist hook.
	msg := messaging.NewService(kv, messaging.Sanitizer{}, indexer, cfg, logger)

	// Create router
	router := api.NewRouter(cfg, logger, users, kv, msg, redisStore)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting Parley server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
