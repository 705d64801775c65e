package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/cache"
	"spendwise/internal/cli"
	"spendwise/internal/core"
	apphttp "spendwise/internal/http"
	"spendwise/internal/identity"
	"spendwise/internal/log"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	store := cli.OpenStore(ctx, logger, cfg)

	dashboards := cache.NewViewCache[core.Dashboard](cfg.CacheSize, cfg.CacheTTL)
	details := cache.NewViewCache[*core.AccountDetail](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(dashboards)
	caches.Register(details)
	caches.StartCleanup(cfg.CacheCleanupInterval)
	defer caches.Stop()

	local := services.Fanout{dashboards, details}
	invalidator := services.Invalidator(local)

	var broker *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, uuid.NewString(), logger)
		if err != nil {
			logger.Warn("AMQP unavailable, view invalidations stay local", log.FieldError, err)
		} else {
			broker = c
			invalidator = services.Fanout{dashboards, details, broker}
			logger.Info("Broadcasting view invalidations",
				"exchange", cfg.AMQPExchange,
				"instance_id", broker.InstanceID())
		}
	}

	svc := services.NewLedgerService(store,
		services.WithInvalidator(invalidator),
		services.WithLogger(logger))

	tokens, err := identity.NewTokens(cfg.SessionSecret, cfg.SessionIssuer)
	if err != nil {
		logger.Error("Invalid session configuration", log.FieldError, err)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, svc,
		apphttp.WithVerifier(tokens),
		apphttp.WithViewCaches(dashboards, details),
		apphttp.WithLogger(logger),
		apphttp.WithRateLimit(ratelimit.Config{Requests: cfg.RateLimit, Window: cfg.RateLimitWindow}),
		apphttp.WithTrustedProxies(cfg.TrustedProxies...),
	)
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting spendwise server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if broker != nil {
		g.Go(func() error {
			err := broker.Consume(gctx, local)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
	}

	if broker != nil {
		if err := broker.Close(); err != nil {
			logger.Warn("Closing AMQP connection", log.FieldError, err)
		}
	}
	if err := svc.Close(); err != nil {
		logger.Warn("Closing ledger store", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
