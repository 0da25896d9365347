package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/cmd/reminder_worker/handler"
	"github.com/Git-Paul-Emile/seek-front-sub000/logger"
	"github.com/Git-Paul-Emile/seek-front-sub000/metrics"
	"github.com/Git-Paul-Emile/seek-front-sub000/middlewares"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/config"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/kafka"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/reminders"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/repositories"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/utils"
	"github.com/Git-Paul-Emile/seek-front-sub000/tracing"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logr, err := logger.InitLogger()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logr.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(utils.GetEnvDefault("CONFIG_PATH", "./config.yaml"))
	if err != nil {
		logr.Fatal("failed to load config", zap.Error(err))
	}
	if !cfg.Kafka.Enabled {
		logr.Fatal("reminder worker needs kafka, set KAFKA_BROKER or kafka.enabled")
	}

	if err := config.RequireSharedStorage(cfg); err != nil {
		logr.Fatal("reminder worker needs shared storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}

	metrics.InitReminderMetrics()
	metrics.InitKafkaMetrics()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(ctx, "reminder_worker", cfg.Tracing.Endpoint, logr)
		if err != nil {
			logr.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer shutdown()
	}

	kv, closeKV, err := config.BuildKV(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to open reminder storage", zap.Error(err))
	}
	defer closeKV()

	gw, err := config.BuildGateway(cfg, logr)
	if err != nil {
		logr.Fatal("failed to build channel gateway", zap.Error(err))
	}

	opts, err := config.BuildKafkaOptions(cfg)
	if err != nil {
		logr.Fatal("failed to configure kafka", zap.Error(err))
	}
	producer := kafka.NewProducer(opts, logr)
	defer producer.Close()

	policies := repositories.NewPolicyRepository(kv, logr)
	history := repositories.NewHistoryRepository(kv)
	dispatcher := reminders.NewDispatcher(policies, history, gw, logr, reminders.WithPublisher(producer))
	jobs := handler.NewBulkJobHandler(dispatcher, kv, logr)

	consumer := kafka.NewConsumer(kafka.TopicBulk, opts, logr).WithDeadLetter(producer)
	defer consumer.Close()
	go func() {
		if err := consumer.ConsumeBulkJobs(ctx, jobs.Handle); err != nil {
			logr.Error("Bulk job consumer stopped", zap.Error(err))
			stop()
		}
	}()
	logr.Info("Starting reminder worker", zap.Strings("brokers", opts.Brokers))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:    cfg.Server.WorkerAddr,
		Handler: middlewares.MetricsMiddleware(mux),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("Shutting down reminder worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
