package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/bus"
	"tally/internal/cli"
	apphttp "tally/internal/http"
	"tally/internal/ledger"
	"tally/internal/limits"
	applog "tally/internal/log"
	"tally/internal/pin"
	"tally/internal/services"
	"tally/pkg/metrics"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting tally")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// AMQP is optional; without a URL the sync bridge is simply off.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPAlertQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			repo.Close()
			return
		}
		logger.Info("AMQP sync bridge enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	collector := metrics.NewCollector(logger.Logger)
	events := bus.New()
	ledgerLog := logger.WithComponent(applog.ComponentLedger)
	limitsLog := logger.WithComponent(applog.ComponentLimits)
	reconciler := ledger.NewReconciler(repo, ledgerLog.Logger)
	ledgerSvc := services.NewLedgerService(repo, reconciler, events, amqpClient, collector, ledgerLog.Logger)
	pinSvc := pin.NewService(repo, repo, logger.WithComponent(applog.ComponentPin).Logger)

	registry := limits.NewRegistry()
	evaluator := limits.NewEvaluator(reconciler, limitsLog.Logger)
	poller := limits.NewPoller(evaluator, registry, cfg.LimitPollInterval, limitsLog.Logger,
		func(ctx context.Context, userID string, alert *limits.Alert) {
			collector.RecordLimitAlert(string(alert.Severity))
			if amqpClient == nil {
				return
			}
			if err := amqpClient.PublishLimitAlert(ctx, userID, string(alert.Severity), alert.Types); err != nil {
				logger.ErrorContext(ctx, "Failed to publish limit alert", "user_id", userID, "error", err)
			}
		})
	unbind := poller.BindBus(events)
	defer unbind()

	apiServer := apphttp.NewServer(":"+cfg.Port, ledgerSvc, pinSvc, evaluator, registry, events, collector, logger.WithComponent(applog.ComponentHTTP).Logger)
	metricsServer := collector.Server(":" + cfg.MetricsPort)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", "error", err)
		}
		events.Close()
		if err := ledgerSvc.Close(); err != nil {
			logger.Error("Service close error", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting API server", "port", cfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return poller.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
