package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"coinflip-backend/internal/config"
	"coinflip-backend/internal/handlers"
	"coinflip-backend/internal/logger"
	"coinflip-backend/internal/middleware"
	"coinflip-backend/internal/observability"
	"coinflip-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	wallet, err := services.DialEthereumWallet(ctx, cfg.RPCURL, metrics)
	if err != nil {
		zl.Fatal("failed to dial wallet", zap.String("url", cfg.RPCURL), zap.Error(err))
	}
	defer wallet.Close()

	var rounds services.RoundStore
	var limiter middleware.RateLimiter
	if cfg.RedisURL != "" {
		redisService, err := services.NewRedisService(cfg)
		if err != nil {
			zl.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisService.Close()

		rounds = redisService
		limiter = redisService
	} else {
		zl.Warn("REDIS_URL not set, running without round history and rate limiting")
	}

	jwtService := services.NewJWTService(cfg)
	hub := handlers.NewWebSocketHub(zl)

	opts := services.AppOptions{
		TargetChainID:  cfg.TargetChainID,
		DefaultBet:     cfg.DefaultBet,
		FaucetAmount:   cfg.FaucetAmount,
		ConnectTimeout: cfg.ConnectTimeout,
		RequestTimeout: cfg.RequestTimeout,
	}
	registry := services.NewRegistry(func(clientID string) *services.App {
		return services.NewApp(clientID, opts, services.AppDeps{
			Wallet:      wallet,
			Rounds:      rounds,
			Broadcaster: hub,
			Metrics:     metrics,
			Logger:      zl,
		})
	}, zl)
	registry.SetMaxApps(cfg.MaxSessions)
	defer registry.CloseAll()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				registry.CleanupIdle(cfg.AppIdleTimeout)
			case <-ctx.Done():
				return
			}
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Registry:       registry,
		Hub:            hub,
		JWTService:     jwtService,
		RateLimiter:    limiter,
		BetRateLimit:   cfg.BetRateLimit,
		TokenRateLimit: cfg.TokenRateLimit,
		Logger:         zl,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	zl.Info("server starting",
		zap.String("port", cfg.Port),
		zap.Int64("target_chain_id", cfg.TargetChainID),
		zap.String("rpc_url", cfg.RPCURL))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("failed to start server", zap.Error(err))
	}
}
