// cmd/apply-server/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"medcert-apply/internal/api"
	commonaws "medcert-apply/internal/common/aws"
	"medcert-apply/internal/common/camunda"
	"medcert-apply/internal/common/config"
	"medcert-apply/internal/common/database"
	"medcert-apply/internal/common/logger"
	"medcert-apply/internal/common/observability"
	"medcert-apply/internal/otp"
	"medcert-apply/internal/payment"
	"medcert-apply/internal/session"
	"medcert-apply/internal/uploads"

	ccr "medcert-apply/internal/workers/application/create-certificate-record"
	ics "medcert-apply/internal/workers/application/index-certificate-submission"
	san "medcert-apply/internal/workers/application/send-application-notification"
	vca "medcert-apply/internal/workers/application/validate-certificate-application"
	cpi "medcert-apply/internal/workers/payment/create-payment-intent"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting apply server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	var traceOpts []sdktrace.TracerProviderOption
	if cfg.Tracing.JaegerEndpoint != "" {
		opt, err := observability.WithJaeger(cfg.Tracing.JaegerEndpoint)
		if err != nil {
			zapLog.Fatal("jaeger exporter setup failed", zap.Error(err))
		}
		traceOpts = append(traceOpts, opt)
	}
	obs, err := observability.New(cfg.App.Name, traceOpts...)
	if err != nil {
		zapLog.Warn("metrics exporter unavailable", zap.Error(err))
	}

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			RetryConfig: &camunda.RetryConfig{
				MaxRetries: cfg.Camunda.MaxRetries,
				BaseDelay:  time.Second,
				MaxDelay:   10 * time.Second,
			},
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("postgres schema setup failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	if err := esClient.EnsureIndex(ctx, cfg.Database.Elasticsearch.ApplicationsIndex, ics.IndexMapping); err != nil {
		zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Redis ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- AWS ---
	awsCfg, err := commonaws.LoadConfig(ctx, cfg.Integrations.AWS.Region, "")
	if err != nil {
		zapLog.Fatal("aws config load failed", zap.Error(err))
	}
	s3Cfg, err := commonaws.LoadConfig(ctx, cfg.Storage.S3.Region, cfg.Storage.S3.Endpoint)
	if err != nil {
		zapLog.Fatal("aws storage config load failed", zap.Error(err))
	}
	sesClient := commonaws.NewSESClient(awsCfg)
	snsClient := commonaws.NewSNSClient(awsCfg)
	presigner := commonaws.NewS3PresignClient(s3Cfg, cfg.Storage.S3.Endpoint != "")

	otpCfg := cfg.OTP
	if otpCfg.SenderID == "" {
		otpCfg.SenderID = cfg.Integrations.AWS.SNS.DefaultSMSSenderID
	}

	// --- Workers ---
	gateway := payment.NewClientFromConfig(cfg.Integrations)
	zbc := zeebe.GetClient()

	var workers []worker.JobWorker
	register := func(taskType string, h camunda.HandlerFunc) {
		if w := camunda.StartWorker(zbc, taskType, config.GetWorkerConfig(cfg, taskType), h, obs, log); w != nil {
			workers = append(workers, w)
		}
	}

	register(vca.TaskType, vca.NewHandler(
		vca.LoadConfig(config.GetWorkerConfig(cfg, vca.TaskType)), log,
	).Handle)
	register(ccr.TaskType, ccr.NewHandler(
		ccr.LoadConfig(config.GetWorkerConfig(cfg, ccr.TaskType)), pg.DB, log,
	).Handle)
	register(cpi.TaskType, cpi.NewHandler(
		cpi.LoadConfig(config.GetWorkerConfig(cfg, cpi.TaskType)), pg.DB, gateway, log,
	).Handle)
	register(ics.TaskType, ics.NewHandler(
		ics.LoadConfig(config.GetWorkerConfig(cfg, ics.TaskType), cfg.Database.Elasticsearch), esClient.Client, log,
	).Handle)
	register(san.TaskType, san.NewHandler(
		san.LoadConfig(config.GetWorkerConfig(cfg, san.TaskType), cfg.Integrations), sesClient, snsClient, log,
	).Handle)
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Public API ---
	handler := api.NewHandler(api.Dependencies{
		Sessions:  session.NewRedisStore(redis.Client, cfg.Session),
		OTP:       otp.NewService(redis.Client, snsClient, otpCfg, log),
		Uploads:   uploads.NewService(presigner, cfg.Storage),
		Starter:   zeebe,
		ProcessID: cfg.Camunda.ProcessID,
		Logger:    log,
	})
	apiServer := api.NewServer(cfg.Server, handler.Router())
	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// --- Health & Metrics Server ---
	ops := http.NewServeMux()
	ops.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	ops.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		for name, ping := range map[string]func(context.Context) error{
			"postgres":      pg.Ping,
			"redis":         redis.Ping,
			"elasticsearch": esClient.Ping,
			"zeebe":         zeebe.HealthCheck,
		} {
			if err := ping(checkCtx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": http.StatusText(status),
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	ops.Handle("/metrics", promhttp.Handler())
	opsServer := &http.Server{Addr: cfg.Server.OpsAddress, Handler: ops}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.OpsAddress))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping API server", zap.Error(err))
	}
	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	obs.Shutdown(shutdownCtx)

	zapLog.Info("Apply server stopped gracefully")
}
