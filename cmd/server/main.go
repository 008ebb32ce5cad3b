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
	"github.com/ErlanBelekov/crm-backend/internal/email"
	"github.com/ErlanBelekov/crm-backend/internal/health"
	"github.com/ErlanBelekov/crm-backend/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/crm-backend/internal/log"
	"github.com/ErlanBelekov/crm-backend/internal/metrics"
	"github.com/ErlanBelekov/crm-backend/internal/password"
	"github.com/ErlanBelekov/crm-backend/internal/token"
	httptransport "github.com/ErlanBelekov/crm-backend/internal/transport/http"
	"github.com/ErlanBelekov/crm-backend/internal/transport/http/handler"
	"github.com/ErlanBelekov/crm-backend/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	sender, err := email.NewSender(email.Options{
		Provider:     cfg.EmailProvider,
		From:         cfg.EmailFrom,
		ResendAPIKey: cfg.ResendAPIKey,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
	}, logger)
	if err != nil {
		stop()
		log.Fatalf("email: %v", err)
	}

	signer := token.NewJWTSigner([]byte(cfg.JWTSecret), cfg.JWTTTL())

	hasher, err := password.NewBcryptHasher(cfg.BcryptCost, cfg.HashWorkers())
	if err != nil {
		stop()
		log.Fatalf("password hasher: %v", err)
	}

	// Auth
	authUsecase := usecase.NewAuthUsecase(usecase.AuthDeps{
		Users:       postgres.NewUserRepository(pool),
		ResetTokens: postgres.NewResetTokenRepository(pool),
		Hasher:      hasher,
		Signer:      signer,
		Notifier:    email.NewPasswordResetNotifier(sender, cfg.ResetTokenTTL()),
		Logger:      logger,
		FrontendURL: cfg.FrontendURL,
		ResetTTL:    cfg.ResetTokenTTL(),
	})
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, health.Probe{Name: "postgres", Pinger: pool})

	router, err := httptransport.NewRouter(logger, authHandler, signer, httptransport.RouterConfig{
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.AuthRateLimitRPS,
		RateLimitBurst: cfg.AuthRateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		stop()
		log.Fatalf("router: %v", err)
	}

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "email_provider", cfg.EmailProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
