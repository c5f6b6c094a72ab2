// Package outbox relays audit entries from the Postgres outbox table to the
// message bus so downstream compliance tooling gets every automated decision.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	txcontext "vendorwatch/pkg/platform/tx"
)

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Relay polls unpublished outbox rows and publishes them in creation order.
// Rows are locked with SKIP LOCKED so several replicas can relay safely.
type Relay struct {
	db        *sql.DB
	publisher Publisher
	topic     string
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func NewRelay(db *sql.DB, publisher Publisher, topic string, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		publisher: publisher,
		topic:     topic,
		batchSize: 100,
		interval:  5 * time.Second,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "outbox relay batch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type entry struct {
	id          uuid.UUID
	aggregateID string
	payload     []byte
}

// RelayOnce publishes at most one batch and returns how many rows were
// marked published. A publish failure stops the batch; rows published before
// it are still marked.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var (
		published  int
		publishErr error
	)
	err := txcontext.RunInTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, aggregate_id, payload
			FROM outbox
			WHERE published_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, r.batchSize)
		if err != nil {
			return fmt.Errorf("select outbox batch: %w", err)
		}

		var batch []entry
		for rows.Next() {
			var e entry
			if err := rows.Scan(&e.id, &e.aggregateID, &e.payload); err != nil {
				rows.Close()
				return fmt.Errorf("scan outbox entry: %w", err)
			}
			batch = append(batch, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate outbox batch: %w", err)
		}

		var done []string
		for _, e := range batch {
			if err := r.publisher.Publish(ctx, r.topic, []byte(e.aggregateID), e.payload); err != nil {
				publishErr = fmt.Errorf("publish outbox entry %s: %w", e.id, err)
				break
			}
			done = append(done, e.id.String())
		}

		if len(done) > 0 {
			if _, err := tx.ExecContext(ctx, `
				UPDATE outbox SET published_at = $2
				WHERE id = ANY($1::uuid[])
			`, pq.Array(done), time.Now()); err != nil {
				return fmt.Errorf("mark outbox published: %w", err)
			}
		}
		published = len(done)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, publishErr
}
