package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"enrollgate/internal/accounts"
	"enrollgate/internal/platform/config"
	"enrollgate/internal/platform/httpserver"
	"enrollgate/internal/platform/logger"
	"enrollgate/internal/platform/postgres"
	platformredis "enrollgate/internal/platform/redis"
	"enrollgate/internal/registration/handler"
	"enrollgate/internal/registration/metrics"
	"enrollgate/internal/registration/notify"
	"enrollgate/internal/registration/otp"
	"enrollgate/internal/registration/service"
	"enrollgate/internal/registration/store/code"
	"enrollgate/internal/registration/store/pending"
	"enrollgate/internal/registration/sweep"
	"enrollgate/internal/token"
)

// main wires the stores, services, and background workers, then runs the
// HTTP server until a shutdown signal arrives. Business logic lives in the
// internal packages.
func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("enrollgate: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable stores when a DSN is configured, process memory otherwise.
	var (
		codeStore    code.Store     = code.NewInMemoryStore()
		accountStore accounts.Store = accounts.NewInMemoryStore()
	)
	if cfg.Database.DSN != "" {
		pool, err := postgres.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		for _, schema := range []string{code.Schema, accounts.Schema} {
			if _, err := pool.Exec(ctx, schema); err != nil {
				return err
			}
		}
		codeStore = code.NewPostgresStore(pool)
		accountStore = accounts.NewPostgresStore(pool)
		log.Info("using postgres-backed stores")
	}

	var pendingStore pending.Store = pending.NewInMemoryStore()
	if cfg.Redis.URL != "" {
		redisClient, err := platformredis.New(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		pendingStore = pending.NewRedisStore(redisClient.Client)
		log.Info("using redis-backed pending store")
	}

	regMetrics := metrics.New(prometheus.DefaultRegisterer)

	otpSvc, err := otp.New(codeStore, otp.Config{
		CodeWindow:   cfg.Registration.CodeWindow,
		IssueCeiling: cfg.Registration.IssueCeiling,
		IssueWindow:  cfg.Registration.IssueWindow,
	}, otp.WithLogger(log), otp.WithMetrics(regMetrics))
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(
		notify.NewLogNotifier(log),
		cfg.Notify.BufferSize,
		notify.WithLogger(log),
		notify.WithMetrics(regMetrics),
	)

	issuer := token.NewIssuer(
		cfg.Token.SigningSecret,
		cfg.Token.Issuer,
		cfg.Token.AccessLifetime,
		cfg.Token.RefreshLifetime,
	)

	regService, err := service.New(
		pendingStore, otpSvc, accountStore, dispatcher, issuer,
		cfg.Registration.PendingTTL,
		service.WithLogger(log), service.WithMetrics(regMetrics),
	)
	if err != nil {
		return err
	}

	sweeper, err := sweep.New(
		pendingStore, otpSvc, cfg.Registration.SweepInterval,
		sweep.WithLogger(log), sweep.WithMetrics(regMetrics),
	)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	handler.New(regService, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(ctx)
	})
	g.Go(func() error {
		return sweeper.Run(ctx)
	})
	g.Go(func() error {
		log.Info("starting enrollgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("enrollgate stopped")
	return nil
}
