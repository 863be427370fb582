package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"safeballot/internal/platform/config"
	"safeballot/internal/platform/httpserver"
	"safeballot/internal/platform/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 5 * time.Minute
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.Close()

	go sweepSessions(ctx, a, log)

	srv := httpserver.New(cfg.Server.Addr, a.handler, cfg.Upstream.Timeout)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting safeballot",
			"addr", cfg.Server.Addr,
			"env", cfg.Server.Environment,
			"profile_store", cfg.Store.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// sweepSessions drops abandoned in-progress verification flows.
func sweepSessions(ctx context.Context, a *app, log *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.verification.Sweep(); n > 0 {
				log.Debug("expired verification sessions dropped", "count", n)
			}
		}
	}
}
