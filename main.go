package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OxMxDev/portfolio/internal/config"
	"github.com/OxMxDev/portfolio/internal/contact"
	"github.com/OxMxDev/portfolio/internal/content"
	"github.com/OxMxDev/portfolio/internal/logger"
	"github.com/OxMxDev/portfolio/internal/ratelimit"
	"github.com/OxMxDev/portfolio/internal/relay"
	"github.com/OxMxDev/portfolio/internal/server"
	"github.com/OxMxDev/portfolio/internal/session"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load config. A missing relay key stops the process here.
	path := os.Getenv("PORTFOLIO_CONFIG")
	if path == "" {
		path = "portfolio.yml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// 2. Setup Logger
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger.Init(level)
	gin.SetMode(cfg.GinMode)

	// 3. Relay and page content
	relayClient, err := relay.New(cfg.Relay)
	if err != nil {
		logger.Log.Error("Relay misconfigured", "error", err)
		os.Exit(1)
	}
	portfolio, err := content.Load(cfg.ContentFile)
	if err != nil {
		logger.Log.Error("Failed to load content", "error", err)
		os.Exit(1)
	}

	// 4. Rate limiting, in Redis when reachable
	redisClient := connectRedis(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}
	limiter := ratelimit.New(ratelimit.Config{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window,
		Prefix: "rl:contact:",
		Redis:  redisClient,
	})
	sessionLimiter := ratelimit.New(ratelimit.Config{
		Limit:  cfg.Session.CreateLimit,
		Window: cfg.Session.CreateWindow,
		Prefix: "rl:session:",
		Redis:  redisClient,
	})

	// 5. Visitor sessions
	sessions, err := session.NewStore(cfg.Session.Max, session.Factory{
		Sender: relayClient,
		Options: contact.Options{
			SuccessDelay: cfg.Contact.SuccessDelay,
			ErrorDelay:   cfg.Contact.ErrorDelay,
			Logger:       logger.Log,
		},
		Band: cfg.Band,
	})
	if err != nil {
		logger.Log.Error("Failed to create session store", "error", err)
		os.Exit(1)
	}

	// 6. Setup Router
	router := server.NewRouter(server.Deps{
		Config:         cfg,
		Content:        portfolio,
		Sessions:       sessions,
		Limiter:        limiter,
		SessionLimiter: sessionLimiter,
		Logger:         logger.Log,
	})

	// 7. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Starting portfolio server", "port", cfg.Port, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}
	sessions.Close()

	logger.Log.Info("Server exiting")
}

// connectRedis returns nil when Redis is not configured or not reachable;
// the limiter then counts in memory.
func connectRedis(cfg config.RedisConfig) *goredis.Client {
	if cfg.URL == "" {
		return nil
	}
	client, err := ratelimit.NewRedisClient(cfg.URL, cfg.Password)
	if err != nil {
		logger.Log.Warn("Invalid Redis settings, rate limiting in memory", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.Warn("Redis unreachable, rate limiting in memory", "error", err)
		_ = client.Close()
		return nil
	}
	logger.Log.Info("Redis connected for rate limiting")
	return client
}
