package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Matongos/inventory/internal/config"
	"github.com/Matongos/inventory/internal/httpapi"
	"github.com/Matongos/inventory/internal/logger"
	"github.com/Matongos/inventory/internal/ratelimit"
	"github.com/Matongos/inventory/internal/service"
	"github.com/Matongos/inventory/internal/store"
	"github.com/Matongos/inventory/internal/store/memory"
	pgstore "github.com/Matongos/inventory/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			zlog.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		zlog.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		zlog.Info("repository: in-memory")
	}

	loginLimiter := ratelimit.Limiter(ratelimit.NewMemory(cfg.LoginAttemptMax, time.Duration(cfg.LoginAttemptWindowSeconds)*time.Second))
	if cfg.RedisAddr != "" {
		redisLimiter := ratelimit.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LoginAttemptMax, time.Duration(cfg.LoginAttemptWindowSeconds)*time.Second)
		if err := redisLimiter.Ping(ctx); err != nil {
			zlog.Warn("redis unavailable, using in-memory login limiter", zap.Error(err))
		} else {
			loginLimiter = redisLimiter
			closers = append(closers, redisLimiter.Close)
			zlog.Info("login limiter: redis")
		}
	}

	svc := service.New(repo, zlog)
	if cfg.BootstrapAdminPassword != "" {
		if err := svc.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminPassword); err != nil {
			zlog.Fatal("bootstrap admin setup failed", zap.Error(err))
		}
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, loginLimiter, zlog)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zlog.Info("inventory backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			zlog.Error("close error", zap.Error(err))
		}
	}

	zlog.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
