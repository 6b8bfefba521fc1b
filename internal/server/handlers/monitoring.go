package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/server/responses"
	"git.home.luguber.info/inful/walletpool/internal/version"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// MonitoringHandlers serves health and metrics endpoints.
type MonitoringHandlers struct {
	startTime    time.Time
	checks       map[string]HealthCheck
	metrics      http.Handler
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates the monitoring handlers. metrics may be nil.
func NewMonitoringHandlers(startTime time.Time, checks map[string]HealthCheck, metrics http.Handler) *MonitoringHandlers {
	return &MonitoringHandlers{
		startTime:    startTime,
		checks:       checks,
		metrics:      metrics,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// Register mounts the routes on mux.
func (h *MonitoringHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HandleHealthCheck)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

// HandleHealthCheck reports 200 when every check passes and 503 otherwise.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.startTime).Seconds(),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	if len(names) > 0 {
		health.Checks = make(map[string]string, len(names))
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			health.Checks[name] = err.Error()
			health.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		health.Checks[name] = "ok"
	}

	if err := writeJSONPretty(w, r, status, health); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write health response").Build())
	}
}
