package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"vendorwatch/pkg/platform/audit"
	"vendorwatch/pkg/platform/sentinel"
)

// escalateStaleReviews sends one digest to one reviewer listing every vendor
// that has waited in UNDER_REVIEW longer than the review SLA. It never
// changes vendor status.
func (s *Service) escalateStaleReviews(ctx context.Context, logger *slog.Logger, report *RunReport, now time.Time) error {
	ctx, span := s.tracer.Start(ctx, "compliance.escalateStaleReviews")
	defer span.End()

	cutoff := now.Add(-s.policy.ReviewSLA)
	stale, err := s.vendors.ListPendingReviewBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("fetch pending reviews: %w", err)
	}
	report.Escalation.Breaches = len(stale)
	s.metrics.SetSLABreaches(len(stale))
	span.SetAttributes(attribute.Int("breaches", len(stale)))
	if len(stale) == 0 {
		return nil
	}

	reviewer, err := s.reviewers.FindActiveReviewer(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		report.Escalation.SkipCause = "no active reviewer"
		logger.WarnContext(ctx, "sla breach escalation skipped, no active reviewer", "breaches", len(stale))
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve reviewer: %w", err)
	}
	report.Escalation.Reviewer = reviewer.ID.String()

	err = s.notifier.Send(ctx, SLADigest(reviewer, stale, s.policy.ReviewSLA, s.policy.Location))
	s.metrics.IncrementNotification(notificationDigest, err == nil)
	if err != nil {
		report.Escalation.SkipCause = "digest delivery failed"
		logger.WarnContext(ctx, "sla breach digest failed", "reviewer_id", reviewer.ID.String(), "error", err)
	} else {
		report.Escalation.Notified = true
	}

	vendorIDs := make([]string, len(stale))
	for i, v := range stale {
		vendorIDs[i] = v.ID.String()
	}
	s.emit(ctx, logger, audit.Event{
		ActorID:    audit.ActorSystem,
		Action:     string(audit.EventSLABreachEscalated),
		EntityType: audit.EntityVendor,
		Payload: map[string]any{
			"count":       len(stale),
			"vendor_ids":  vendorIDs,
			"reviewer_id": reviewer.ID.String(),
			"notified":    report.Escalation.Notified,
			"sla_hours":   s.policy.ReviewSLA.Hours(),
		},
		RunID: report.RunID.String(),
	})

	logger.InfoContext(ctx, "sla breaches escalated",
		"breaches", len(stale),
		"reviewer_id", reviewer.ID.String(),
		"notified", report.Escalation.Notified,
	)
	return nil
}
