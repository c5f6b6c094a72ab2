package compliance

import (
	"errors"
	"time"

	id "vendorwatch/pkg/domain"
)

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = errors.New("compliance run already in progress")

// EscalationOutcome summarises the SLA pass of a run.
type EscalationOutcome struct {
	Breaches  int    `json:"breaches"`
	Notified  bool   `json:"notified"`
	Reviewer  string `json:"reviewer,omitempty"`
	SkipCause string `json:"skip_cause,omitempty"`
}

// RunReport counts what one run did. Returned to callers and logged; not persisted
// beyond the summary audit entry.
type RunReport struct {
	RunID      id.RunID      `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`

	DocumentsEvaluated int `json:"documents_evaluated"`
	Expired            int `json:"expired"`
	ExpiringSoon       int `json:"expiring_soon"`

	RemindersSent   int `json:"reminders_sent"`
	RemindersFailed int `json:"reminders_failed"`

	TransitionsApplied int `json:"transitions_applied"`
	TransitionsSkipped int `json:"transitions_skipped"`
	TransitionsFailed  int `json:"transitions_failed"`
	BlockNoticesFailed int `json:"block_notices_failed"`
	AuditWritesFailed  int `json:"audit_writes_failed"`

	Escalation EscalationOutcome `json:"escalation"`

	Error string `json:"error,omitempty"`
}

func (r *RunReport) Failed() bool { return r.Error != "" }

func (r *RunReport) summary() map[string]any {
	return map[string]any{
		"documents_evaluated": r.DocumentsEvaluated,
		"expired":             r.Expired,
		"expiring_soon":       r.ExpiringSoon,
		"reminders_sent":      r.RemindersSent,
		"reminders_failed":    r.RemindersFailed,
		"transitions_applied": r.TransitionsApplied,
		"transitions_skipped": r.TransitionsSkipped,
		"transitions_failed":  r.TransitionsFailed,
		"sla_breaches":        r.Escalation.Breaches,
		"duration_ms":         r.Duration.Milliseconds(),
	}
}
