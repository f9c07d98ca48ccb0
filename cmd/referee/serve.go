package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/adapter/feed"
	httpHandler "github.com/Jamarblack/Degen-Arena/internal/adapter/http/handler"
	pgStorage "github.com/Jamarblack/Degen-Arena/internal/adapter/storage/postgres"
	redisStorage "github.com/Jamarblack/Degen-Arena/internal/adapter/storage/redis"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"
	"github.com/Jamarblack/Degen-Arena/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	noSettle, _ := cmd.Flags().GetBool("no-settle")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Bool("settlement", !noSettle).
		Msg("Starting Degen Arena referee")

	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(cfg.Operator, service.NewArgon2HashService(), tokenSvc, a.auditSvc)
	hub := feed.NewHub(a.bus, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WagerSvc:       a.wagerSvc,
		AuthSvc:        authSvc,
		Settlement:     a.engine,
		Markets:        a.oracle,
		Quarantine:     a.quarantine,
		Ingest:         cfg.Ingest,
		SigSvc:         service.NewHMACSignatureService(),
		NonceStore:     redisStorage.NewNonceStore(a.rdb),
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(a.rdb),
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(a.pool),
			redisStorage.NewHealthCheck(a.rdb),
			a.rpcHealth,
		},
		AuditSvc:       a.auditSvc,
		HTTPMetrics:    a.metrics,
		MetricsHandler: a.metrics.Handler(),
		Feed:           hub.Serve,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	g.Go(func() error {
		return hub.Run(gctx)
	})

	if !noSettle {
		g.Go(func() error {
			return a.engine.Run(gctx)
		})
	}

	err = g.Wait()
	log.Info().Msg("Server exited")
	return err
}
