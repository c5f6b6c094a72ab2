package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: automated
	// vendor status changes and review SLA escalations. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers run bookkeeping useful for operators.
	CategoryOperations EventCategory = "operations"
)

// Entity types recorded on audit entries.
const (
	EntityVendor = "vendor"
	EntityJob    = "job"
)

// ActorSystem marks entries written by the engine rather than a person.
// Stored as an empty actor id.
const ActorSystem = ""

// Event is an immutable audit record. Keep it transport-agnostic so stores
// and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Payload    map[string]any
	// RunID correlates every entry written by one compliance run.
	RunID string
}

type AuditEvent string

const (
	EventVendorStatusAutoUpdated AuditEvent = "VENDOR_STATUS_AUTO_UPDATED"
	EventSLABreachEscalated      AuditEvent = "SLA_BREACH_ESCALATED"
	EventCronJobCompleted        AuditEvent = "CRON_JOB_COMPLETED"
	EventCronJobError            AuditEvent = "CRON_JOB_ERROR"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVendorStatusAutoUpdated: CategoryCompliance,
	EventSLABreachEscalated:      CategoryCompliance,
	EventCronJobCompleted:        CategoryOperations,
	EventCronJobError:            CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
