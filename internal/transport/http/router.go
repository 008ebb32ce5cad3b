package httptransport

import (
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/crm-backend/internal/token"
	"github.com/ErlanBelekov/crm-backend/internal/transport/http/handler"
	"github.com/ErlanBelekov/crm-backend/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type RouterConfig struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers
	// are honoured. Nil trusts none.
	TrustedProxies []string
}

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, signer *token.JWTSigner, cfg RouterConfig) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	auth := r.Group("/auth", middleware.NoStore(), middleware.RateLimit(limiter, logger))
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	// Protected
	auth.GET("/me", middleware.Auth(signer), authHandler.Me)

	return r, nil
}
