// Package store is the ballot store adapter: remote fetch with slug-ID and
// cached-collection fallbacks.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"safeballot/internal/ballot"
	"safeballot/internal/platform/metrics"
	"safeballot/internal/upstream"
	dErrors "safeballot/pkg/domain-errors"
	"safeballot/pkg/platform/circuit"
)

// Source reports which path served a ballot.
type Source string

const (
	SourceRemote     Source = "remote"
	SourceRemoteSlug Source = "remote_slug"
	SourceCache      Source = "cache"
)

// Cache is the per-profile cached ballot collection.
type Cache interface {
	CachedBallots(ctx context.Context) ([]ballot.Record, error)
	CacheBallot(ctx context.Context, rec ballot.Record) error
}

// Result is a fetched, normalized ballot.
type Result struct {
	Ballot ballot.Record `json:"ballot"`
	Source Source        `json:"source"`
}

type Adapter struct {
	remote  upstream.BallotService
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Adapter)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(a *Adapter) {
		if b != nil {
			a.breaker = b
		}
	}
}

func New(remote upstream.BallotService, opts ...Option) (*Adapter, error) {
	if remote == nil {
		return nil, errors.New("ballot service is required")
	}
	a := &Adapter{
		remote:  remote,
		breaker: circuit.New("ballot-service"),
		logger:  slog.Default(),
		tracer:  otel.Tracer("safeballot/internal/ballot/store"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// GetBallot resolves id, trying in order: remote by id, remote by the slug ID
// (only when it is a UUID distinct from id), the cached collection by id,
// and the cached collection by slug ID. Every remote hit refreshes the cache.
func (a *Adapter) GetBallot(ctx context.Context, cache Cache, id, slug string) (Result, error) {
	ctx, span := a.tracer.Start(ctx, "ballot.GetBallot",
		trace.WithAttributes(attribute.String("ballot.id", id)))
	defer span.End()

	slugID := ballot.SlugID(slug)

	if rec, ok := a.fetchRemote(ctx, id); ok {
		return a.served(ctx, span, cache, rec, SourceRemote, true), nil
	}
	if slugID != "" && slugID != id && ballot.IsUUID(slugID) {
		if rec, ok := a.fetchRemote(ctx, slugID); ok {
			return a.served(ctx, span, cache, rec, SourceRemoteSlug, true), nil
		}
	}

	if cache != nil {
		cached, err := cache.CachedBallots(ctx)
		if err != nil {
			a.logger.WarnContext(ctx, "cached ballots unavailable", "error", err)
		}
		if rec, ok := findCached(cached, id, slugID); ok {
			return a.served(ctx, span, cache, rec, SourceCache, false), nil
		}
	}

	span.SetStatus(codes.Error, "ballot not found")
	return Result{}, dErrors.New(dErrors.CodeNotFound,
		"This ballot may no longer be available or the link is invalid.")
}

func (a *Adapter) fetchRemote(ctx context.Context, id string) (ballot.Record, bool) {
	if !a.breaker.Allow() {
		a.logger.DebugContext(ctx, "ballot service breaker open, skipping remote", "ballot_id", id)
		return ballot.Record{}, false
	}

	raw, err := a.remote.GetBallot(ctx, id)
	if err != nil {
		// A missing ballot says nothing about backend health.
		if upstream.GetCategory(err) != upstream.CategoryNotFound {
			if _, change := a.breaker.RecordFailure(); change.Opened {
				a.logger.WarnContext(ctx, "ballot service breaker opened", "breaker", a.breaker.Name())
			}
		}
		a.logger.InfoContext(ctx, "remote ballot fetch failed",
			"ballot_id", id,
			"category", string(upstream.GetCategory(err)),
			"error", err,
		)
		return ballot.Record{}, false
	}
	if _, change := a.breaker.RecordSuccess(); change.Closed {
		a.logger.InfoContext(ctx, "ballot service breaker closed", "breaker", a.breaker.Name())
	}

	rec := ballot.NormalizeJSON(raw)
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, true
}

func (a *Adapter) served(ctx context.Context, span trace.Span, cache Cache, rec ballot.Record, src Source, refresh bool) Result {
	if refresh && cache != nil {
		if err := cache.CacheBallot(ctx, rec); err != nil {
			a.logger.WarnContext(ctx, "failed to refresh cached ballot",
				"ballot_id", rec.ID,
				"error", err,
			)
		}
	}
	span.SetAttributes(attribute.String("ballot.source", string(src)))
	a.metrics.IncBallotSource(string(src))
	return Result{Ballot: rec, Source: src}
}

func findCached(records []ballot.Record, id, slugID string) (ballot.Record, bool) {
	for _, rec := range records {
		if rec.ID == id {
			return rec, true
		}
	}
	if slugID == "" {
		return ballot.Record{}, false
	}
	for _, rec := range records {
		if rec.ID == slugID || strings.Contains(rec.ID, slugID) {
			return rec, true
		}
	}
	return ballot.Record{}, false
}
