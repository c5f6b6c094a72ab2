package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "vendorwatch/pkg/platform/audit"
	txcontext "vendorwatch/pkg/platform/tx"
)

// Store implements audit.Store with the transactional outbox pattern: each
// event lands in audit_log for querying and in outbox for the Kafka relay, in
// the same transaction.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID         string         `json:"id"`
	Category   string         `json:"category"`
	Timestamp  string         `json:"timestamp"`
	ActorID    string         `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	RunID      string         `json:"run_id,omitempty"`
}

// Append writes the event to audit_log and outbox. If ctx carries a
// transaction the writes join it; otherwise Append opens its own.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if tx, ok := txcontext.From(ctx); ok {
		return s.append(ctx, tx, event)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.append(ctx, tx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

func (s *Store) append(ctx context.Context, exec dbExecutor, event audit.Event) error {
	eventID := uuid.New()
	category := audit.AuditEvent(event.Action).Category()

	data, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	if event.Payload == nil {
		data = []byte("{}")
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO audit_log (id, category, timestamp, actor_id, action, entity_type, entity_id, payload, run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		eventID,
		string(category),
		event.Timestamp,
		nullString(event.ActorID),
		event.Action,
		event.EntityType,
		nullString(event.EntityID),
		data,
		event.RunID,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	message, err := json.Marshal(outboxPayload{
		ID:         eventID.String(),
		Category:   string(category),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		ActorID:    event.ActorID,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Payload:    event.Payload,
		RunID:      event.RunID,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	aggregateID := event.EntityID
	if aggregateID == "" {
		aggregateID = eventID.String()
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.New(),
		event.EntityType,
		aggregateID,
		event.Action,
		message,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT category, timestamp, actor_id, action, entity_type, entity_id, payload, run_id
	FROM audit_log
`

// ListByEntity returns the events recorded for one entity, oldest first.
func (s *Store) ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE entity_type = $1 AND entity_id IS NOT DISTINCT FROM $2
		ORDER BY timestamp ASC
	`, entityType, nullString(entityID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			category string
			actorID  sql.NullString
			entityID sql.NullString
			payload  []byte
		)
		if err := rows.Scan(
			&category,
			&event.Timestamp,
			&actorID,
			&event.Action,
			&event.EntityType,
			&entityID,
			&payload,
			&event.RunID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.ActorID = actorID.String
		event.EntityID = entityID.String
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
