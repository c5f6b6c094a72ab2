package handler

import (
	"time"

	"vendorwatch/internal/compliance"
	"vendorwatch/internal/compliance/scheduler"
	"vendorwatch/pkg/platform/audit"
)

type runResponse struct {
	RunID              string                       `json:"run_id"`
	StartedAt          time.Time                    `json:"started_at"`
	FinishedAt         time.Time                    `json:"finished_at"`
	DurationMS         int64                        `json:"duration_ms"`
	DocumentsEvaluated int                          `json:"documents_evaluated"`
	Expired            int                          `json:"expired"`
	ExpiringSoon       int                          `json:"expiring_soon"`
	RemindersSent      int                          `json:"reminders_sent"`
	RemindersFailed    int                          `json:"reminders_failed"`
	TransitionsApplied int                          `json:"transitions_applied"`
	TransitionsSkipped int                          `json:"transitions_skipped"`
	TransitionsFailed  int                          `json:"transitions_failed"`
	Escalation         compliance.EscalationOutcome `json:"escalation"`
	Error              string                       `json:"error,omitempty"`
}

func toRunResponse(r *compliance.RunReport) *runResponse {
	if r == nil {
		return nil
	}
	return &runResponse{
		RunID:              r.RunID.String(),
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
		DurationMS:         r.Duration.Milliseconds(),
		DocumentsEvaluated: r.DocumentsEvaluated,
		Expired:            r.Expired,
		ExpiringSoon:       r.ExpiringSoon,
		RemindersSent:      r.RemindersSent,
		RemindersFailed:    r.RemindersFailed,
		TransitionsApplied: r.TransitionsApplied,
		TransitionsSkipped: r.TransitionsSkipped,
		TransitionsFailed:  r.TransitionsFailed,
		Escalation:         r.Escalation,
		Error:              r.Error,
	}
}

type lastRunResponse struct {
	Trigger    string       `json:"trigger"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Error      string       `json:"error,omitempty"`
	Report     *runResponse `json:"report,omitempty"`
}

type statusResponse struct {
	Running bool             `json:"running"`
	NextRun *time.Time       `json:"next_run,omitempty"`
	LastRun *lastRunResponse `json:"last_run,omitempty"`
}

func toStatusResponse(s scheduler.Status) statusResponse {
	resp := statusResponse{Running: s.Running}
	if !s.NextRun.IsZero() {
		next := s.NextRun
		resp.NextRun = &next
	}
	if s.LastRun != nil {
		resp.LastRun = &lastRunResponse{
			Trigger:    s.LastRun.Trigger,
			StartedAt:  s.LastRun.StartedAt,
			FinishedAt: s.LastRun.FinishedAt,
			Error:      s.LastRun.Error,
			Report:     toRunResponse(s.LastRun.Report),
		}
	}
	return resp
}

type auditEntryResponse struct {
	Category   string         `json:"category"`
	Timestamp  time.Time      `json:"timestamp"`
	ActorID    string         `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	RunID      string         `json:"run_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type auditResponse struct {
	Entries []auditEntryResponse `json:"entries"`
}

func toAuditResponse(events []audit.Event) auditResponse {
	resp := auditResponse{Entries: make([]auditEntryResponse, 0, len(events))}
	for _, e := range events {
		resp.Entries = append(resp.Entries, auditEntryResponse{
			Category:   string(e.Category),
			Timestamp:  e.Timestamp,
			ActorID:    e.ActorID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			RunID:      e.RunID,
			Payload:    e.Payload,
		})
	}
	return resp
}
