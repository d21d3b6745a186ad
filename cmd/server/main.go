// Package main provides the entry point for the compliance-alerting server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kneutral-org/compliance-alerting/internal/alerting"
	"github.com/kneutral-org/compliance-alerting/internal/api"
	"github.com/kneutral-org/compliance-alerting/internal/compliance"
	"github.com/kneutral-org/compliance-alerting/internal/config"
	"github.com/kneutral-org/compliance-alerting/internal/device"
	"github.com/kneutral-org/compliance-alerting/internal/email"
	"github.com/kneutral-org/compliance-alerting/internal/inventory"
	"github.com/kneutral-org/compliance-alerting/internal/logging"
	"github.com/kneutral-org/compliance-alerting/internal/metrics"
	"github.com/kneutral-org/compliance-alerting/internal/middleware"
	"github.com/kneutral-org/compliance-alerting/internal/msgraph"
	"github.com/kneutral-org/compliance-alerting/internal/rules"
	"github.com/kneutral-org/compliance-alerting/internal/scheduler"
	"github.com/kneutral-org/compliance-alerting/internal/support"
)

const serviceName = "compliance-alerting"

func main() {
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.LogPretty {
		logger = logging.NewPrettyLogger(serviceName, cfg.LogLevel)
	} else {
		logger = logging.NewLogger(serviceName, cfg.LogLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores. Device, rule, recipient and alert stores are in-memory;
	// cooldowns move to Postgres when a database is configured so that
	// throttling survives restarts.
	deviceStore := device.NewInMemoryStore()
	ruleStore := rules.NewInMemoryStore()
	recipientStore := alerting.NewInMemoryRecipientStore()
	alertStore := alerting.NewInMemoryAlertStore()
	supportStore := support.NewInMemoryStore()

	var cooldownStore alerting.CooldownStore = alerting.NewInMemoryCooldownStore()
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		cooldownStore = alerting.NewPostgresCooldownStore(pool)
		logger.Info().Msg("using postgres cooldown store")
	}

	if cfg.VendorSupportSeedFile != "" {
		if err := support.SeedStore(ctx, supportStore, cfg.VendorSupportSeedFile, logger); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.VendorSupportSeedFile).Msg("failed to seed vendor support records")
		}
	}

	// Device-management provider. Without credentials the server still
	// runs: rules, recipients and manual evaluation work, but sync is
	// unavailable and outgoing mail is dropped.
	creds := msgraph.Credentials{
		TenantID:     cfg.GraphTenantID,
		ClientID:     cfg.GraphClientID,
		ClientSecret: cfg.GraphClientSecret,
	}

	var sender alerting.EmailSender = dropSender{logger: logger}
	var syncer *inventory.Syncer
	if creds.Configured() {
		client := msgraph.NewHTTPClient(ctx, creds, logger)
		sender = email.NewGraphSender(client, cfg.GraphBaseURL, cfg.AlertSenderEmail, logger)
		syncer = inventory.NewSyncer(deviceStore, inventory.NewGraphSource(client, cfg.GraphBaseURL, logger), logger)
	} else {
		logger.Warn().Msg("graph credentials not configured, device sync and email delivery disabled")
	}

	evaluator := compliance.NewEvaluator(deviceStore, ruleStore, supportStore, logger,
		compliance.WithWarningDays(cfg.EOSWarningDays))
	dispatcher := alerting.NewDispatcher(alertStore, recipientStore, cooldownStore, sender, logger,
		alerting.WithCooldownDays(cfg.AlertCooldownDays))
	processor := alerting.NewProcessor(deviceStore, dispatcher, logger)

	// Background jobs.
	sched := scheduler.New(logger)
	if syncer != nil {
		sched.Register(scheduler.Job{
			Name:     "device_sync",
			Interval: cfg.SyncInterval,
			Run: func(ctx context.Context) error {
				_, err := syncer.Sync(ctx)
				return err
			},
		})
	}
	sched.Register(scheduler.Job{
		Name:     "compliance_evaluation",
		Interval: cfg.EvaluationInterval,
		Run: func(ctx context.Context) error {
			_, err := evaluator.EvaluateAll(ctx)
			return err
		},
	})
	sched.Register(scheduler.Job{
		Name:     "alert_processing",
		Interval: cfg.AlertInterval,
		Run: func(ctx context.Context) error {
			_, err := processor.ProcessAlerts(ctx)
			return err
		},
	})

	schedDone := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(schedDone)
	}()

	// HTTP server.
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	metrics.RegisterMetricsEndpoint(router)

	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.PayloadLimitErrorHandler(logger))
	apiV1.Use(middleware.PayloadLimit(cfg.AdminMaxPayloadSize, logger))

	handler := api.NewHandler(deviceStore, ruleStore, recipientStore, alertStore, evaluator, syncer, processor, logger)
	handler.RegisterRoutes(apiV1)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	cancel()
	<-schedDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited properly")
}

// dropSender stands in for the mail transport when no provider
// credentials are configured. Mail is logged and dropped.
type dropSender struct {
	logger zerolog.Logger
}

func (s dropSender) Send(ctx context.Context, to []string, subject, body string) error {
	s.logger.Warn().
		Strs("to", to).
		Str("subject", subject).
		Msg("email delivery not configured, email not sent")
	return nil
}
