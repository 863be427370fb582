// Package publisher fans audit events out to a Store, either inline or
// through a bounded background buffer.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "safeballot/pkg/platform/audit"
)

var ErrBufferFull = errors.New("audit buffer full")

// Publisher implements audit.Emitter.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	buffer chan audit.Event
	closed bool
	wg     sync.WaitGroup
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking. Events are dropped with
// ErrBufferFull once size events are queued.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.store.Append(ctx, event)
	}
	select {
	case p.buffer <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"request_id", event.RequestID,
		)
		return ErrBufferFull
	}
}

// List reads events back when the underlying store supports it.
func (p *Publisher) List(ctx context.Context, profileID string) ([]audit.Event, error) {
	lister, ok := p.store.(audit.Lister)
	if !ok {
		return nil, errors.New("audit store does not support listing")
	}
	return lister.ListByProfile(ctx, profileID)
}

// Close stops accepting buffered events and waits for the queue to drain.
func (p *Publisher) Close() {
	if p.buffer == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.buffer)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"request_id", event.RequestID,
				"error", err,
			)
		}
	}
}
