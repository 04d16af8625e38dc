package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/nagrik-sahayak/cmd/mainconfig"
	"github.com/wolfman30/nagrik-sahayak/internal/api/router"
	"github.com/wolfman30/nagrik-sahayak/internal/app/bootstrap"
	"github.com/wolfman30/nagrik-sahayak/internal/archive"
	"github.com/wolfman30/nagrik-sahayak/internal/auth"
	appconfig "github.com/wolfman30/nagrik-sahayak/internal/config"
	"github.com/wolfman30/nagrik-sahayak/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/nagrik-sahayak/internal/http/middleware"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
	"github.com/wolfman30/nagrik-sahayak/internal/notify"
	"github.com/wolfman30/nagrik-sahayak/internal/observability/metrics"
	"github.com/wolfman30/nagrik-sahayak/internal/users"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting nagrik-sahayak API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("api server failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, intakeMetrics := setupIntakeMetrics()

	var awsCfg *aws.Config
	if needsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		awsCfg = &loaded
	}

	storage, err := bootstrap.BuildStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	draftStore := bootstrap.BuildDraftStore(redisClient, cfg, logger)

	caps, err := bootstrap.BuildCapabilities(ctx, cfg, bootstrap.CapabilityDeps{
		AWS:     awsCfg,
		Metrics: intakeMetrics,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := caps.Close(); err != nil {
			logger.Warn("failed to close capability clients", "error", err)
		}
	}()
	pipeline := intake.NewPipeline(caps.PipelineConfig(logger, intakeMetrics))

	var sesClient notify.SESAPI
	if awsCfg != nil && cfg.EmailProvider == "ses" {
		sesClient = sesv2.NewFromConfig(*awsCfg)
	}
	sender, err := bootstrap.BuildEmailSender(cfg, sesClient, logger)
	if err != nil {
		return err
	}
	submitter := notify.NewSubmitter(sender, notify.SubmitterConfig{
		To:     cfg.ComplaintInbox,
		ToName: cfg.ComplaintInboxName,
	}, logger)

	issuer, err := buildTokenIssuer(cfg, logger)
	if err != nil {
		return err
	}
	userService := users.NewService(storage.Users, issuer, logger)

	intakeHandler := handlers.NewIntakeHandler(handlers.IntakeDeps{
		Pipeline:   pipeline,
		Drafts:     draftStore,
		Complaints: storage.Complaints,
		Events:     storage.EventPublisher(),
		Archive:    buildArchive(awsCfg, cfg, logger),
		Logger:     logger,
	})
	complaintsHandler := handlers.NewComplaintsHandler(
		storage.Complaints,
		storage.DashboardFor(userService.DisplayName),
		submitter,
		storage.EventPublisher(),
		logger,
	)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	go limiter.RunEviction(ctx, time.Minute, 10*time.Minute)

	r := router.New(&router.Config{
		Logger:             logger,
		UsersHandler:       users.NewHandler(userService, logger),
		IntakeHandler:      intakeHandler,
		ComplaintsHandler:  complaintsHandler,
		MetricsHandler:     metricsHandler,
		OpsToken:           cfg.OpsToken,
		AuthSecret:         cfg.AuthJWTSecret,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		ReadyCheck:         readyCheck(storage, redisClient),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func setupIntakeMetrics() (http.Handler, *metrics.IntakeMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewIntakeMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// needsAWS reports whether any configured component talks to AWS.
func needsAWS(cfg *appconfig.Config) bool {
	return cfg.VisionProvider == "bedrock" ||
		cfg.TextProvider == "bedrock" ||
		cfg.EmailProvider == "ses" ||
		cfg.EventSink == "sqs" ||
		cfg.EvidenceBucket != ""
}

// buildArchive returns nil when no bucket is configured.
func buildArchive(awsCfg *aws.Config, cfg *appconfig.Config, logger *logging.Logger) handlers.EvidenceArchiver {
	if awsCfg == nil || cfg.EvidenceBucket == "" {
		return nil
	}
	return archive.NewStore(mainconfig.NewS3Client(*awsCfg, cfg), cfg.EvidenceBucket, logger.Logger)
}

// buildTokenIssuer requires AUTH_JWT_SECRET in production. Elsewhere a random
// per-process secret is used so login still returns a token.
func buildTokenIssuer(cfg *appconfig.Config, logger *logging.Logger) (*auth.Issuer, error) {
	secret := cfg.AuthJWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("AUTH_JWT_SECRET is required in production")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate dev secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		logger.Warn("AUTH_JWT_SECRET not set; citizen routes are unauthenticated")
	}
	return auth.NewIssuer(secret, cfg.AuthTokenTTL)
}

func readyCheck(storage *bootstrap.Storage, redisClient *redis.Client) func(*http.Request) error {
	return func(r *http.Request) error {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := storage.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
