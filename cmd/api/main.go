package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Anandtech09/reception-prime-queue/internal/config"
	"github.com/Anandtech09/reception-prime-queue/internal/engine"
	"github.com/Anandtech09/reception-prime-queue/internal/handler"
	doctorHandler "github.com/Anandtech09/reception-prime-queue/internal/handler/doctor"
	queueHandler "github.com/Anandtech09/reception-prime-queue/internal/handler/queue"
	"github.com/Anandtech09/reception-prime-queue/internal/hub"
	"github.com/Anandtech09/reception-prime-queue/internal/middleware"
	"github.com/Anandtech09/reception-prime-queue/internal/router"
	queuesync "github.com/Anandtech09/reception-prime-queue/internal/sync"
	"github.com/Anandtech09/reception-prime-queue/pkg/logger"
	"github.com/Anandtech09/reception-prime-queue/pkg/messaging"
	redisbroker "github.com/Anandtech09/reception-prime-queue/pkg/messaging/redis"
	"github.com/Anandtech09/reception-prime-queue/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize logging
	log.Logger = logger.New(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})

	m := metrics.NewMetrics("clinic_queue")

	// Initialize the durable snapshot slot and the broadcast channel. A
	// missing broker is not fatal, the syncer downgrades to polling.
	var store queuesync.Store
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		redisStore, err := queuesync.NewRedisStore(cfg.Redis.URL, cfg.Sync.StorageKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisStore.Close()
		store = redisStore

		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log.Logger)
		if err != nil {
			log.Warn().Err(err).Msg("broadcast channel unavailable, using store polling")
			broker = nil
		}
	} else {
		log.Warn().Msg("no Redis configured, running with in-memory store")
		store = queuesync.NewMemoryStore(cfg.Sync.StorageKey)
	}

	// Initialize the queue engine with the fixed roster
	eng := engine.New(
		cfg.Clinic.Roster(),
		engine.WithMetrics(m),
		engine.WithLogger(log.Logger),
		engine.WithTokenPadding(cfg.Clinic.TokenPadding),
	)

	// Initialize sync layer
	syncer := queuesync.New(store, broker, eng, queuesync.Config{
		Channel:      cfg.Sync.Channel,
		PollInterval: cfg.Sync.PollInterval,
	}, log.Logger, m)
	if err := syncer.Restore(context.Background()); err != nil {
		log.Warn().Err(err).Msg("failed to restore queue state, starting fresh")
	}
	eng.SetOnChange(syncer.Enqueue)

	// Initialize display hub
	displayHub := hub.New(log.Logger)
	syncer.SetNotify(displayHub.BroadcastState)

	// Initialize handlers
	h := handler.NewHandler()
	queueH := queueHandler.NewHandler(eng)
	doctorH := doctorHandler.NewHandler(eng)

	// Setup router
	r := router.NewRouter(queueH, doctorH, displayHub, h, router.Config{
		RateLimit:     rateLimit(cfg),
		RateBurst:     cfg.RateLimit.Burst,
		CORSConfig:    corsConfig(cfg),
		MetricsPrefix: "clinic_queue_http",
	})
	r.Setup()

	// Start background loops: break-expiry sweep and remote snapshot intake
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx, cfg.Clinic.SweepInterval)
	go func() {
		if err := syncer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("sync listener stopped")
		}
	}()

	// Create server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	cancel()
	if broker != nil {
		if err := broker.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close broker")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func rateLimit(cfg *config.Config) float64 {
	if !cfg.RateLimit.Enabled {
		return 0
	}
	return cfg.RateLimit.RequestsPerSecond
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if len(cfg.Security.AllowedOrigins) > 0 {
		c.AllowOrigins = cfg.Security.AllowedOrigins
	}
	return c
}
