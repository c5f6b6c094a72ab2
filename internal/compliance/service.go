// Package compliance runs the daily vendor compliance pass: it classifies
// mandatory documents by expiry, blocks vendors whose documents lapsed,
// reminds vendors about documents expiring soon and escalates reviews that
// breached the review SLA.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"vendorwatch/internal/compliance/metrics"
	"vendorwatch/internal/compliance/runlock"
	"vendorwatch/internal/vendors/models"
	id "vendorwatch/pkg/domain"
	"vendorwatch/pkg/platform/audit"
	"vendorwatch/pkg/platform/sentinel"
)

const (
	notificationReminder = "reminder"
	notificationBlocked  = "blocked"
	notificationDigest   = "digest"
)

// Service orchestrates one compliance run at a time.
type Service struct {
	documents DocumentStore
	vendors   VendorStore
	reviewers ReviewerDirectory
	notifier  Notifier
	audit     AuditPublisher
	lock      RunLock
	policy    Policy
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithRunLock(lock RunLock) Option {
	return func(s *Service) {
		s.lock = lock
	}
}

func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(
	documents DocumentStore,
	vendors VendorStore,
	reviewers ReviewerDirectory,
	notifier Notifier,
	auditPublisher AuditPublisher,
	opts ...Option,
) (*Service, error) {
	if documents == nil || vendors == nil || reviewers == nil {
		return nil, errors.New("document, vendor and reviewer stores are required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if auditPublisher == nil {
		return nil, errors.New("audit publisher is required")
	}

	s := &Service{
		documents: documents,
		vendors:   vendors,
		reviewers: reviewers,
		notifier:  notifier,
		audit:     auditPublisher,
		policy:    DefaultPolicy(),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.lock == nil {
		s.lock = runlock.NewMemory()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("vendorwatch/internal/compliance")
	}
	if s.policy.Location == nil {
		s.policy.Location = time.UTC
	}
	if err := s.policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compliance policy: %w", err)
	}
	return s, nil
}

func (s *Service) Policy() Policy { return s.policy }

// Run executes one full pass. It returns ErrRunInProgress without side
// effects when another run holds the lock. Any other fatal error, including a
// lock backend failure, is recorded as a CRON_JOB_ERROR audit entry and
// returned alongside the partial report. Closing audit entries are written
// even after the run deadline has passed.
func (s *Service) Run(ctx context.Context) (*RunReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.policy.RunTimeout)
	defer cancel()

	release, err := s.lock.Acquire(ctx, s.policy.RunTimeout)
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			s.metrics.IncrementRefused()
			s.logger.WarnContext(ctx, "compliance run refused, another run holds the lock")
			return nil, ErrRunInProgress
		}
		lockErr := fmt.Errorf("acquire run lock: %w", err)
		report := &RunReport{RunID: id.NewRunID(), StartedAt: s.now(), Error: lockErr.Error()}
		report.FinishedAt = report.StartedAt
		s.logger.ErrorContext(ctx, "compliance run failed", "run_id", report.RunID.String(), "error", lockErr)
		s.emitJobError(context.WithoutCancel(ctx), s.logger, report.RunID.String(), lockErr)
		s.metrics.ObserveRun("failed", 0)
		return report, lockErr
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "failed to release run lock", "error", err)
		}
	}()

	now := s.now()
	report := &RunReport{RunID: id.NewRunID(), StartedAt: now}
	logger := s.logger.With("run_id", report.RunID.String())

	ctx, span := s.tracer.Start(ctx, "compliance.Run",
		trace.WithAttributes(attribute.String("run_id", report.RunID.String())))
	defer span.End()

	logger.InfoContext(ctx, "compliance run started", "now", now)
	runErr := s.execute(ctx, logger, report, now)

	report.FinishedAt = s.now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	if runErr != nil {
		report.Error = runErr.Error()
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "compliance run failed")
		logger.ErrorContext(ctx, "compliance run failed", "error", runErr, "duration", report.Duration)
		s.emitJobError(context.WithoutCancel(ctx), logger, report.RunID.String(), runErr)
		s.metrics.ObserveRun("failed", report.Duration)
		return report, runErr
	}

	s.emit(context.WithoutCancel(ctx), logger, audit.Event{
		ActorID:    audit.ActorSystem,
		Action:     string(audit.EventCronJobCompleted),
		EntityType: audit.EntityJob,
		EntityID:   report.RunID.String(),
		Payload:    report.summary(),
		RunID:      report.RunID.String(),
	})
	s.metrics.ObserveRun("completed", report.Duration)
	s.metrics.MarkSuccess(report.FinishedAt)
	logger.InfoContext(ctx, "compliance run completed",
		"documents", report.DocumentsEvaluated,
		"expired", report.Expired,
		"expiring_soon", report.ExpiringSoon,
		"reminders_sent", report.RemindersSent,
		"reminders_failed", report.RemindersFailed,
		"transitions_applied", report.TransitionsApplied,
		"transitions_skipped", report.TransitionsSkipped,
		"transitions_failed", report.TransitionsFailed,
		"sla_breaches", report.Escalation.Breaches,
		"duration", report.Duration,
	)
	return report, nil
}

// execute is the run boundary: any panic on this goroutine becomes a fatal
// run error.
func (s *Service) execute(ctx context.Context, logger *slog.Logger, report *RunReport, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during compliance run: %v", r)
		}
	}()

	if err := s.processDocuments(ctx, logger, report, now); err != nil {
		return err
	}
	return s.escalateStaleReviews(ctx, logger, report, now)
}

func (s *Service) processDocuments(ctx context.Context, logger *slog.Logger, report *RunReport, now time.Time) error {
	ctx, span := s.tracer.Start(ctx, "compliance.processDocuments")
	defer span.End()

	docs, err := s.documents.ListMandatoryWithExpiry(ctx, s.policy.MandatoryDocTypes)
	if err != nil {
		return fmt.Errorf("fetch mandatory documents: %w", err)
	}
	report.DocumentsEvaluated = len(docs)

	decisions := s.planAll(docs, report, now)
	span.SetAttributes(
		attribute.Int("documents", len(docs)),
		attribute.Int("decisions", len(decisions)),
	)

	t := &tally{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.policy.Concurrency)
	for _, d := range decisions {
		g.Go(func() error {
			s.handleDecision(gctx, logger, report.RunID, d, now, t)
			return nil
		})
	}
	_ = g.Wait()

	t.applyTo(report)
	return nil
}

// planAll classifies every document and produces one decision per vendor
// that needs action, in order of first appearance.
func (s *Service) planAll(docs []models.ExpiringDocument, report *RunReport, now time.Time) []Decision {
	var order []id.VendorID
	grouped := make(map[id.VendorID][]ClassifiedDocument)
	statuses := make(map[id.VendorID]models.VendorStatus)

	for _, doc := range docs {
		state := Classify(doc.ExpiryDate, now, s.policy.ExpiringWindow)
		s.metrics.IncrementDocument(string(state))
		switch state {
		case ExpiryExpired:
			report.Expired++
		case ExpiryExpiringSoon:
			report.ExpiringSoon++
		}
		if _, seen := grouped[doc.VendorID]; !seen {
			order = append(order, doc.VendorID)
			statuses[doc.VendorID] = doc.VendorStatus
		}
		grouped[doc.VendorID] = append(grouped[doc.VendorID], ClassifiedDocument{Document: doc, State: state})
	}

	var decisions []Decision
	for _, vendorID := range order {
		d := Plan(statuses[vendorID], grouped[vendorID], s.policy.Location)
		if d.Kind != DecisionNoAction {
			decisions = append(decisions, d)
		}
	}
	return decisions
}

// handleDecision is the per-vendor failure boundary. Everything for one
// vendor runs on the calling goroutine.
func (s *Service) handleDecision(ctx context.Context, logger *slog.Logger, runID id.RunID, d Decision, now time.Time, t *tally) {
	logger = logger.With("vendor_id", d.VendorID.String())
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "vendor processing panicked", "panic", fmt.Sprint(r))
			if d.Kind == DecisionSetNeedsRenewal {
				t.add(func(t *tally) { t.transitionsFailed++ })
				s.metrics.IncrementTransition("failed")
			} else {
				t.add(func(t *tally) { t.remindersFailed++ })
			}
		}
	}()

	switch d.Kind {
	case DecisionNotifyExpiring:
		for _, doc := range d.Expiring {
			s.sendReminder(ctx, logger, doc, t)
		}
	case DecisionSetNeedsRenewal:
		s.applyRenewal(ctx, logger, runID, d, now, t)
	}
}

func (s *Service) sendReminder(ctx context.Context, logger *slog.Logger, doc models.ExpiringDocument, t *tally) {
	err := s.notifier.Send(ctx, ExpiringReminder(doc, s.policy.Location))
	s.metrics.IncrementNotification(notificationReminder, err == nil)
	if err != nil {
		t.add(func(t *tally) { t.remindersFailed++ })
		logger.WarnContext(ctx, "expiry reminder failed",
			"document_id", doc.DocumentID.String(),
			"doc_type", string(doc.DocType),
			"error", err,
		)
		return
	}
	t.add(func(t *tally) { t.remindersSent++ })
}

// applyRenewal persists the transition, audits it, then tells the vendor.
func (s *Service) applyRenewal(ctx context.Context, logger *slog.Logger, runID id.RunID, d Decision, now time.Time, t *tally) {
	offender := d.Offender
	transition := models.StatusTransition{
		VendorID:    d.VendorID,
		From:        offender.VendorStatus,
		To:          models.VendorStatusNeedsRenewal,
		ReviewNotes: d.Reason,
		UpdatedAt:   now,
	}

	if err := s.vendors.TransitionStatus(ctx, transition); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			t.add(func(t *tally) { t.transitionsSkipped++ })
			s.metrics.IncrementTransition("skipped")
			logger.InfoContext(ctx, "vendor status changed concurrently, skipping transition",
				"expected_status", string(transition.From))
			return
		}
		t.add(func(t *tally) { t.transitionsFailed++ })
		s.metrics.IncrementTransition("failed")
		logger.ErrorContext(ctx, "vendor status transition failed", "error", err)
		return
	}
	t.add(func(t *tally) { t.transitionsApplied++ })
	s.metrics.IncrementTransition("applied")

	if !s.emit(ctx, logger, audit.Event{
		ActorID:    audit.ActorSystem,
		Action:     string(audit.EventVendorStatusAutoUpdated),
		EntityType: audit.EntityVendor,
		EntityID:   d.VendorID.String(),
		Payload: map[string]any{
			"old_status":  string(transition.From),
			"new_status":  string(transition.To),
			"reason":      d.Reason,
			"document_id": offender.DocumentID.String(),
			"doc_type":    string(offender.DocType),
			"expiry_date": offender.ExpiryDate.UTC().Format(time.RFC3339),
		},
		RunID: runID.String(),
	}) {
		t.add(func(t *tally) { t.auditWritesFailed++ })
	}

	err := s.notifier.Send(ctx, BlockedNotice(offender.VendorName, offender.VendorEmail, d.Reason))
	s.metrics.IncrementNotification(notificationBlocked, err == nil)
	if err != nil {
		t.add(func(t *tally) { t.blockNoticesFailed++ })
		logger.WarnContext(ctx, "blocked notice failed", "error", err)
	}
}

// emit writes one audit entry. Failures are logged and reported to the caller
// but never propagated.
func (s *Service) emit(ctx context.Context, logger *slog.Logger, event audit.Event) bool {
	if err := s.audit.Emit(ctx, event); err != nil {
		logger.ErrorContext(ctx, "audit write failed",
			"log_type", "audit",
			"action", event.Action,
			"entity_id", event.EntityID,
			"error", err,
		)
		return false
	}
	return true
}

// emitJobError writes the CRON_JOB_ERROR entry for a fatal run failure.
func (s *Service) emitJobError(ctx context.Context, logger *slog.Logger, runID string, runErr error) {
	s.emit(ctx, logger, audit.Event{
		ActorID:    audit.ActorSystem,
		Action:     string(audit.EventCronJobError),
		EntityType: audit.EntityJob,
		EntityID:   runID,
		Payload:    map[string]any{"error": runErr.Error()},
		RunID:      runID,
	})
}

// tally collects counters from concurrent vendor workers.
type tally struct {
	mu                 sync.Mutex
	remindersSent      int
	remindersFailed    int
	transitionsApplied int
	transitionsSkipped int
	transitionsFailed  int
	blockNoticesFailed int
	auditWritesFailed  int
}

func (t *tally) add(fn func(*tally)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t)
}

func (t *tally) applyTo(r *RunReport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r.RemindersSent = t.remindersSent
	r.RemindersFailed = t.remindersFailed
	r.TransitionsApplied = t.transitionsApplied
	r.TransitionsSkipped = t.transitionsSkipped
	r.TransitionsFailed = t.transitionsFailed
	r.BlockNoticesFailed = t.blockNoticesFailed
	r.AuditWritesFailed = t.auditWritesFailed
}
