package handler

import (
	"net/http"

	"github.com/Jamarblack/Degen-Arena/config"
	"github.com/Jamarblack/Degen-Arena/internal/adapter/http/middleware"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WagerSvc       ports.WagerService
	AuthSvc        ports.AuthService
	Settlement     ports.SettlementService
	Markets        ports.MarketLister
	Quarantine     ports.Quarantine
	Ingest         config.IngestConfig
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	TokenSvc       ports.TokenService
	RateLimitStore middleware.Limiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService      // nil = audit logging disabled
	HTTPMetrics    middleware.HTTPObserver // nil = no request metrics
	MetricsHandler http.Handler            // nil = /metrics not served
	Feed           gin.HandlerFunc         // nil = realtime feed disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Wager ingestion (HMAC) and public reads ---
	wagerHandler := NewWagerHandler(deps.WagerSvc)
	hmacAuth := middleware.HMACAuth(deps.Ingest, deps.SigSvc, deps.NonceStore, deps.Logger)
	wagers := v1.Group("/wagers")
	{
		wagers.POST("", hmacAuth, rl("wagers_create"), wagerHandler.Place)
		wagers.GET("", rl("reads"), wagerHandler.List)
		wagers.GET("/high-stakes", rl("reads"), wagerHandler.HighStakes)
		wagers.GET("/winners", rl("reads"), wagerHandler.Winners)
		wagers.GET("/:id", rl("reads"), wagerHandler.Get)
	}

	if deps.Markets != nil {
		v1.GET("/markets", rl("markets"), NewMarketHandler(deps.Markets).List)
	}
	if deps.Feed != nil {
		v1.GET("/feed", rl("feed"), deps.Feed)
	}

	// --- Operator (JWT) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	v1.POST("/auth/login", rl("auth_login"), authHandler.Login)

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	admin := v1.Group("/admin", jwtAuth, rl("admin"))
	if deps.AuditSvc != nil {
		admin.Use(middleware.AuditLog(deps.AuditSvc))
	}
	adminHandler := NewAdminHandler(deps.Settlement, deps.WagerSvc, deps.Quarantine)
	{
		admin.POST("/settlement/run", adminHandler.RunSettlement)
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/quarantine", adminHandler.ListQuarantine)
		admin.DELETE("/quarantine/:id", adminHandler.ReleaseQuarantine)
	}

	return r
}
