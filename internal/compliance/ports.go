package compliance

import (
	"context"
	"time"

	"vendorwatch/internal/notify"
	"vendorwatch/internal/vendors/models"
	"vendorwatch/pkg/platform/audit"
)

// DocumentStore reads mandatory documents that carry an expiry date, joined
// with the owning vendor.
type DocumentStore interface {
	ListMandatoryWithExpiry(ctx context.Context, docTypes []models.DocType) ([]models.ExpiringDocument, error)
}

// VendorStore reads stale reviews and applies conditional status updates.
// TransitionStatus returns sentinel.ErrConflict when the vendor already left
// the expected status.
type VendorStore interface {
	ListPendingReviewBefore(ctx context.Context, cutoff time.Time) ([]*models.Vendor, error)
	TransitionStatus(ctx context.Context, t models.StatusTransition) error
}

// ReviewerDirectory returns sentinel.ErrNotFound when nobody can take escalations.
type ReviewerDirectory interface {
	FindActiveReviewer(ctx context.Context) (*models.Reviewer, error)
}

type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// RunLock guards against two runs overlapping, possibly across replicas.
// Acquire returns sentinel.ErrLocked when the lock is held elsewhere.
type RunLock interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(context.Context) error, err error)
}
