package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vendorwatch/internal/compliance"
	"vendorwatch/internal/compliance/scheduler"
	dErrors "vendorwatch/pkg/domain-errors"
	"vendorwatch/pkg/platform/audit"
	"vendorwatch/pkg/platform/httputil"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// Scheduler is the subset of the compliance scheduler the ops endpoints use.
type Scheduler interface {
	Trigger(ctx context.Context) (*compliance.RunReport, error)
	TriggerAsync(ctx context.Context) error
	Status() scheduler.Status
}

type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Handler exposes operator endpoints for compliance runs.
type Handler struct {
	scheduler Scheduler
	audits    AuditReader
	logger    *slog.Logger
}

func New(s Scheduler, audits AuditReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{scheduler: s, audits: audits, logger: logger}
}

// Register mounts the endpoints. Callers wrap r with admin auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/compliance/runs", h.HandleTriggerRun)
	r.Get("/admin/compliance/status", h.HandleStatus)
	r.Get("/admin/compliance/audit", h.HandleRecentAudit)
}

// HandleTriggerRun starts a run. With ?wait=true the request blocks until the
// run finishes and returns its report.
func (h *Handler) HandleTriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("wait") == "true" {
		report, err := h.scheduler.Trigger(ctx)
		if errors.Is(err, compliance.ErrRunInProgress) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a compliance run is already in progress"))
			return
		}
		if errors.Is(err, scheduler.ErrStopped) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "compliance scheduler is shutting down"))
			return
		}
		if err != nil {
			// Already audited by the run; the partial report carries the error.
			h.logger.WarnContext(ctx, "manual compliance run failed", "error", err)
		}
		httputil.WriteJSON(w, http.StatusOK, toRunResponse(report))
		return
	}

	if err := h.scheduler.TriggerAsync(ctx); err != nil {
		if errors.Is(err, compliance.ErrRunInProgress) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a compliance run is already in progress"))
			return
		}
		if errors.Is(err, scheduler.ErrStopped) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "compliance scheduler is shutting down"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start compliance run"))
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(h.scheduler.Status()))
}

func (h *Handler) HandleRecentAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	events, err := h.audits.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit entries", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditResponse(events))
}
