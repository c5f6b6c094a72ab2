package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	compliancehandler "vendorwatch/internal/compliance/handler"
	jwttoken "vendorwatch/internal/jwt_token"
	httpmetrics "vendorwatch/internal/platform/metrics"
	adminmw "vendorwatch/pkg/platform/middleware/admin"
	"vendorwatch/pkg/platform/httputil"
)

func newRouter(a *app, tokens *jwttoken.JWTService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmetrics.New(a.registry).Middleware)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminJWT(tokens, a.logger))
		compliancehandler.New(a.scheduler, a.audits, a.logger).Register(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(a.checks))}
	status := http.StatusOK
	for _, c := range a.checks {
		if err := c.check(ctx); err != nil {
			a.logger.WarnContext(ctx, "health check failed", "dependency", c.name, "error", err)
			resp.Checks[c.name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}
