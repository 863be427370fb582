package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"safeballot/internal/admin"
	ballothandler "safeballot/internal/ballot/handler"
	ballotstore "safeballot/internal/ballot/store"
	"safeballot/internal/digitalkey"
	httpapi "safeballot/internal/http"
	"safeballot/internal/platform/config"
	"safeballot/internal/platform/metrics"
	"safeballot/internal/platform/redis"
	"safeballot/internal/platform/sqldb"
	"safeballot/internal/profile"
	"safeballot/internal/profile/kv"
	"safeballot/internal/quickballot"
	"safeballot/internal/submission"
	submissionhandler "safeballot/internal/submission/handler"
	submissionmetrics "safeballot/internal/submission/metrics"
	"safeballot/internal/upstream/httpclient"
	"safeballot/internal/verification"
	"safeballot/internal/verification/capture"
	verificationhandler "safeballot/internal/verification/handler"
	"safeballot/internal/votertoken"
	"safeballot/pkg/platform/audit"
	"safeballot/pkg/platform/audit/kafka"
	"safeballot/pkg/platform/audit/publisher"
	auditmemory "safeballot/pkg/platform/audit/store/memory"
	"safeballot/pkg/platform/middleware/device"
)

const auditBufferSize = 1024

// app is the assembled process: the HTTP handler plus everything that needs
// background work or an orderly close.
type app struct {
	handler      http.Handler
	verification *verification.Service
	closers      []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires every module from cfg. reg receives all module metrics so
// tests can use a private registry.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{}
	health := map[string]httpapi.HealthCheck{}
	platformMetrics := metrics.NewWithRegisterer(reg)

	backend, err := openProfileStore(ctx, cfg, logger, a, health)
	if err != nil {
		a.Close()
		return nil, err
	}
	profiles := profile.NewStore(backend,
		profile.WithLogger(logger),
		profile.WithMetrics(platformMetrics),
	)

	emitter, lister, err := openAudit(ctx, cfg, logger, a, health)
	if err != nil {
		a.Close()
		return nil, err
	}

	client := httpclient.New(cfg.Upstream.BaseURL,
		httpclient.WithTimeout(cfg.Upstream.Timeout),
		httpclient.WithLogger(logger),
	)
	var quickPrefix string
	if cfg.QuickRoutes {
		quickPrefix = quickballot.RoutePrefix
	}
	gate := quickballot.NewGate(quickPrefix)

	tokens, err := votertoken.New(cfg.VoterToken.SigningKey, cfg.VoterToken.Issuer, cfg.VoterToken.TTL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("voter tokens: %w", err)
	}

	ballots, err := ballotstore.New(client,
		ballotstore.WithLogger(logger),
		ballotstore.WithMetrics(platformMetrics),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ballot store: %w", err)
	}

	keys, err := digitalkey.New(client,
		digitalkey.WithLogger(logger),
		digitalkey.WithAudit(emitter),
		digitalkey.WithMetrics(digitalkey.NewMetrics(reg)),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("digital key service: %w", err)
	}

	verifyOpts := []verification.Option{
		verification.WithLogger(logger),
		verification.WithAudit(emitter),
		verification.WithMetrics(verification.NewMetrics(reg)),
		verification.WithVoterTokens(tokens),
	}
	if cfg.Upstream.CaptureURL != "" {
		verifyOpts = append(verifyOpts, verification.WithCapture(
			capture.New(cfg.Upstream.CaptureURL, cfg.Upstream.Timeout, capture.WithLogger(logger)),
		))
	} else {
		logger.InfoContext(ctx, "identity capture service not configured; scans must carry extracted fields")
	}
	verifier, err := verification.New(keys, client, gate, verifyOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("verification service: %w", err)
	}
	a.verification = verifier

	submitter, err := submission.New(client, client, tokens, gate,
		submission.WithLogger(logger),
		submission.WithAudit(emitter),
		submission.WithMetrics(submissionmetrics.NewWithRegisterer(reg)),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("submission service: %w", err)
	}

	var adminHandler httpapi.Registrar
	if cfg.Server.AdminAPIToken != "" {
		adminHandler = admin.New(profiles, emitter, lister, logger)
	}

	a.handler = httpapi.NewRouter(httpapi.Deps{
		Logger:  logger,
		Metrics: platformMetrics,
		Voter: []httpapi.Registrar{
			ballothandler.New(ballots, profiles, logger),
			verificationhandler.New(verifier, ballots, profiles, logger),
			submissionhandler.New(submitter, ballots, profiles, logger),
		},
		QuickRoutes: cfg.QuickRoutes,
		Admin:       adminHandler,
		AdminToken:  cfg.Server.AdminAPIToken,
		VoterTokens: tokens,
		Device: device.Config{
			CookieName: cfg.Server.ProfileCookie,
			Secure:     cfg.IsProduction(),
		},
		Health: health,
	})
	return a, nil
}

func openProfileStore(ctx context.Context, cfg config.Config, logger *slog.Logger, a *app, health map[string]httpapi.HealthCheck) (kv.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("profile store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		health["redis"] = client.Health
		logger.InfoContext(ctx, "profile store ready", "backend", cfg.Store.Backend)
		return kv.NewRedis(client.Client), nil
	case config.StorePostgres, config.StoreSQLite:
		dialect := sqldb.Postgres
		if cfg.Store.Backend == config.StoreSQLite {
			dialect = sqldb.SQLite
		}
		db, err := sqldb.Open(ctx, dialect, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("profile store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		health["database"] = pingDB(db)
		store := kv.NewSQL(db, dialect)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("profile store: %w", err)
		}
		logger.InfoContext(ctx, "profile store ready", "backend", cfg.Store.Backend)
		return store, nil
	default:
		logger.WarnContext(ctx, "using in-memory profile store; voter state is lost on restart")
		return kv.NewInMemory(), nil
	}
}

func pingDB(db *sql.DB) httpapi.HealthCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

// openAudit returns the emitter services use and, when the store can be read
// back, the lister for the admin audit endpoint.
func openAudit(ctx context.Context, cfg config.Config, logger *slog.Logger, a *app, health map[string]httpapi.HealthCheck) (audit.Emitter, admin.EventLister, error) {
	if len(cfg.Audit.Brokers) == 0 {
		pub := publisher.NewPublisher(auditmemory.NewInMemoryStore(), publisher.WithLogger(logger))
		return pub, pub, nil
	}

	store, err := kafka.New(cfg.Audit.Brokers, cfg.Audit.Topic, kafka.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("audit: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	if err := store.EnsureTopic(ctx, 1, 1); err != nil {
		// The broker may auto-create topics; producing will tell.
		logger.WarnContext(ctx, "could not ensure audit topic", "topic", cfg.Audit.Topic, "error", err)
	}
	health["kafka"] = store.Ping

	pub := publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(logger),
	)
	a.closers = append(a.closers, pub.Close)
	return pub, nil, nil
}
