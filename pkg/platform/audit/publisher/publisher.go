// Package publisher emits audit events to a store.
//
// In sync mode (the default) Emit returns only after the store accepted the
// event, which the compliance run relies on to write an entry before it
// notifies a vendor. Async mode buffers events for callers that must never
// block; a full buffer drops the event and logs it.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "vendorwatch/pkg/platform/audit"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	buffer int
	queue  chan queued
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type queued struct {
	ctx   context.Context
	event audit.Event
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to buffered, non-blocking emission.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = size
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock overrides the timestamp source for events emitted without one.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer > 0 {
		p.queue = make(chan queued, p.buffer)
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event. The category is always derived from the action so
// callers cannot misfile compliance entries.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if p.queue == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
				"entity_id", event.EntityID,
			)
		}
	}
	return nil
}

// ListByEntity returns the recorded events for one entity.
func (p *Publisher) ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Event, error) {
	return p.store.ListByEntity(ctx, entityType, entityID)
}

// Close stops accepting events and drains any buffered ones.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.queue != nil {
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for item := range p.queue {
		if err := p.store.Append(item.ctx, item.event); err != nil && p.logger != nil {
			p.logger.ErrorContext(item.ctx, "async audit append failed",
				"action", item.event.Action,
				"entity_id", item.event.EntityID,
				"error", err,
			)
		}
	}
}
