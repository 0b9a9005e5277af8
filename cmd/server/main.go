package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gatekeeper/internal/auth/device"
	"gatekeeper/internal/auth/handler"
	authmetrics "gatekeeper/internal/auth/metrics"
	"gatekeeper/internal/auth/service"
	"gatekeeper/internal/auth/store/user"
	"gatekeeper/internal/password"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/health"
	"gatekeeper/internal/platform/logger"
	"gatekeeper/internal/platform/middleware"
	"gatekeeper/internal/platform/tracer"
	rlmetrics "gatekeeper/internal/ratelimit/metrics"
	limiter "gatekeeper/internal/ratelimit/service"
	"gatekeeper/internal/ratelimit/store/attempts"
	"gatekeeper/internal/ratelimit/workers/cleanup"
	"gatekeeper/internal/token"
	httptransport "gatekeeper/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New().Error("loading configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("initializing gatekeeper",
		"addr", cfg.Addr,
		"max_attempts", cfg.MaxAttempts,
		"window", cfg.WindowDuration.String(),
		"block_duration", cfg.BlockDuration.String(),
	)

	// Records stay useful for one full window plus any block that follows
	// it; beyond that the sweep worker may reclaim them.
	store, err := attempts.New(cfg.CacheCapacity, cfg.WindowDuration+cfg.BlockDuration)
	if err != nil {
		log.Error("building attempt store", "error", err)
		os.Exit(1)
	}

	limiterMetrics := rlmetrics.New()
	limits, err := limiter.New(store, limiter.Config{
		MaxAttempts:   cfg.MaxAttempts,
		Window:        cfg.WindowDuration,
		BlockDuration: cfg.BlockDuration,
	},
		limiter.WithLogger(log),
		limiter.WithMetrics(limiterMetrics),
	)
	if err != nil {
		log.Error("building rate limiter", "error", err)
		os.Exit(1)
	}

	codec, err := token.New(cfg.SigningKey, cfg.TokenTTL)
	if err != nil {
		log.Error("building token codec", "error", err)
		os.Exit(1)
	}

	hasher, err := password.New(cfg.HashCost)
	if err != nil {
		log.Error("building password hasher", "error", err)
		os.Exit(1)
	}

	auth := service.NewService(user.New(), limits, codec, hasher,
		service.WithLogger(log),
		service.WithMetrics(authmetrics.New()),
		service.WithTracer(tracer.NewOTel()),
		service.WithDeviceService(device.NewService(true)),
	)

	sweeper := cleanup.New(store,
		cleanup.WithLogger(log),
		cleanup.WithMetrics(limiterMetrics),
	)

	probes := health.New()
	probes.RegisterCheck("attempt_store", func() error {
		_, err := store.Len(context.Background())
		return err
	})

	router := httptransport.NewRouter(
		handler.New(auth, log),
		codec,
		probes,
		httptransport.RouterConfig{
			RequestTimeout: cfg.RequestTimeout,
			Metadata:       middleware.MetadataConfig{TrustedProxies: cfg.TrustedProxies},
			Latency:        middleware.NewMetrics(),
		},
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sweeper.Start(gctx)
	})

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
