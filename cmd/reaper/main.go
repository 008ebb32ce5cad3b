// reaper periodically deletes expired password reset tokens.
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

	"github.com/ErlanBelekov/crm-backend/config"
	"github.com/ErlanBelekov/crm-backend/internal/cleanup"
	"github.com/ErlanBelekov/crm-backend/internal/health"
	"github.com/ErlanBelekov/crm-backend/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/crm-backend/internal/log"
	"github.com/ErlanBelekov/crm-backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.LoadReaper()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, health.Probe{Name: "postgres", Pinger: pool})

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	reaper := cleanup.NewResetTokenReaper(postgres.NewResetTokenRepository(pool), cfg.ResetPurgeCron, logger)
	if err := reaper.Start(ctx); err != nil {
		logger.Error("reaper", "error", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("reaper shut down")
}
