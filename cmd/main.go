package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"supportdesk/backend/internal/api/handler"
	"supportdesk/backend/internal/config"
	"supportdesk/backend/internal/inbox"
	"supportdesk/backend/internal/models"
	"supportdesk/backend/internal/storage"
	"supportdesk/backend/internal/support"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func setupDependencies(ctx context.Context, cfg *config.Config) (*storage.Service, *redis.Client) {
	// 1. PostgreSQL
	db, err := storage.OpenPostgres(cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect PostgreSQL")
	}
	s := storage.NewStorageService(db, cfg.DB.Timeout)

	// 2. Redis, optional: without it nobody is reported online
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, presence will report offline")
		}
	}

	// 3. Migrations
	if err := s.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	log.Info().Msg("database and redis connections established, migrations complete")
	return s, rdb
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.ConfigureLogging()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	log.Info().Str("addr", cfg.HTTP.Addr).Msg("starting supportdesk backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	s, rdb := setupDependencies(ctx, cfg)
	presence := storage.NewPresenceService(rdb, cfg.Presence.TTL)

	// 2. Maintainer identity exists before the first request
	bootstrap := support.NewBootstrap(s, models.Identity{
		ID:     cfg.Maintainer.ID,
		Name:   cfg.Maintainer.Name,
		Email:  cfg.Maintainer.Email,
		Avatar: cfg.Maintainer.Avatar,
	})
	if _, err := bootstrap.EnsureMaintainer(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to provision maintainer")
	}

	// 3. Gin and routing
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger())

	h := handler.NewHandler(
		inbox.NewService(s, bootstrap, presence),
		handler.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TTL),
	)
	h.Health = s.Ping
	h.Register(r)

	server := &http.Server{
		Addr:           cfg.HTTP.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := s.Close(); err != nil {
		log.Warn().Err(err).Msg("closing database failed")
	}
}
