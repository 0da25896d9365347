package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Git-Paul-Emile/seek-front-sub000/cmd/reminder_api/app/routes"
	"github.com/Git-Paul-Emile/seek-front-sub000/logger"
	"github.com/Git-Paul-Emile/seek-front-sub000/metrics"
	"github.com/Git-Paul-Emile/seek-front-sub000/middlewares"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/config"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/database"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/kafka"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/utils"
	"github.com/Git-Paul-Emile/seek-front-sub000/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	logr, err := logger.InitLogger()
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
	defer logr.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(utils.GetEnvDefault("CONFIG_PATH", "./config.yaml"))
	if err != nil {
		logr.Fatal("Failed to load config", zap.Error(err))
	}

	metrics.InitAPIMetrics()
	metrics.InitReminderMetrics()
	metrics.InitKafkaMetrics()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(ctx, "reminder_api", cfg.Tracing.Endpoint, logr)
		if err != nil {
			logr.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer shutdown()
	}

	kv, closeKV, err := config.BuildKV(ctx, cfg)
	if err != nil {
		logr.Fatal("Failed to open reminder storage", zap.Error(err))
	}
	defer closeKV()
	logr.Info("Reminder storage ready", zap.String("backend", cfg.Storage.Backend))

	gw, err := config.BuildGateway(cfg, logr)
	if err != nil {
		logr.Fatal("Failed to build channel gateway", zap.Error(err))
	}

	deps := routes.Deps{
		KV:             kv,
		Notifier:       gw,
		Limiter:        middlewares.NewRateLimiter(rate.Limit(cfg.Reminders.RatePerSecond), cfg.Reminders.RateBurst),
		IdempotencyTTL: cfg.Reminders.IdempotencyTTL,
		Log:            logr,
	}

	if cfg.Kafka.Enabled {
		opts, err := config.BuildKafkaOptions(cfg)
		if err != nil {
			logr.Fatal("Failed to configure Kafka", zap.Error(err))
		}
		producer := kafka.NewProducer(opts, logr)
		defer producer.Close()
		deps.Events = producer
		deps.Bulk = producer
		logr.Info("Kafka producer initialized", zap.Strings("brokers", opts.Brokers))
		if err := config.RequireSharedStorage(cfg); err != nil {
			logr.Warn("Async bulk results will not be visible to this API", zap.Error(err))
		}
	}

	if cfg.Storage.Redis.Addr != "" {
		rdb, err := database.InitRedis(ctx, cfg.Storage.Redis)
		if err != nil {
			logr.Warn("Idempotency cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			deps.Cache = middlewares.NewRedisResponseCache(rdb)
		}
	}

	router := gin.New()
	router.Use(gin.Recovery(), middlewares.GinMetricsMiddleware())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.Reminders(router.Group("/api/reminders"), deps)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}
	go func() {
		logr.Info("Reminder API listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("Server shutdown failed", zap.Error(err))
	}
}
