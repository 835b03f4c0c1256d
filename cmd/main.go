package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatsync/backend/internal/api/handler"
	"chatsync/backend/internal/auth"
	"chatsync/backend/internal/chathub"
	"chatsync/backend/internal/config"
	"chatsync/backend/internal/logger"
	"chatsync/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func setupDependencies(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage.Service, error) {
	db, err := storage.OpenPostgres(cfg.Postgres)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Hub.Broadcast == config.BroadcastRedis {
		rdb, err = storage.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
	}

	s := storage.NewStorageService(db, rdb)
	if err := s.AutoMigrate(); err != nil {
		return nil, err
	}

	log.Info("main - dependencies - ready", slog.String("broadcast", cfg.Hub.Broadcast))
	return s, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("main - env - .env not loaded", slog.Any("error", err))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("main - config - invalid", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(cfg)
	if cfg.Service.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := setupDependencies(ctx, cfg, log)
	if err != nil {
		log.Error("main - dependencies - failed", slog.Any("error", err))
		os.Exit(1)
	}

	resolver := auth.NewResolver(cfg.Auth.Secret, cfg.Auth.Issuer, s)
	hub := chathub.NewManagerService(s, resolver, log)
	if cfg.Hub.Broadcast == config.BroadcastRedis {
		relay := chathub.NewRedisBroadcaster(s, hub.Groups, cfg.Hub.ChannelPrefix, log)
		hub.UseBroadcaster(relay)
		go relay.Listen(ctx)
	}
	go hub.Run(ctx)

	h := handler.NewHandler(hub, s, cfg.Hub.AllowedOrigins, log)
	server := &http.Server{
		Addr:           ":" + cfg.Service.Port,
		Handler:        h.Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info("main - http - listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("main - http - stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("main - shutdown - started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("main - shutdown - forced", slog.Any("error", err))
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("main - shutdown - done")
}
