package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"cryptosys/pkg/logger"
)

// Checker reports whether a dependency is reachable. The postgres, redis
// and clickhouse clients implement it.
type Checker interface {
	Health(ctx context.Context) error
}

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	checks      map[string]Checker
	advisory    map[string]bool
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a health handler over the enabled dependencies
func New(serviceName, version string, checks map[string]Checker) *Handler {
	if checks == nil {
		checks = map[string]Checker{}
	}
	return &Handler{
		log:         logger.Get().With("component", "health"),
		checks:      checks,
		advisory:    map[string]bool{},
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// AddAdvisory registers a check reported by /health that readiness
// ignores. Call it before the server starts.
func (h *Handler) AddAdvisory(name string, check Checker) {
	h.checks[name] = check
	h.advisory[name] = true
}

// Status represents the overall health status
type Status struct {
	Status    string                     `json:"status"` // healthy, degraded, unhealthy
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HandleLiveness returns 200 while the process is running
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness returns 503 unless every dependency is healthy
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy := h.runChecks(ctx, false)
	status := h.status(checks)

	code := http.StatusOK
	if healthy < len(checks) {
		status.Status = statusUnhealthy
		code = http.StatusServiceUnavailable
		h.log.Warn("Readiness check failed", "checks", checks)
	}
	writeJSON(w, code, status)
}

// HandleHealth reports every check. Some failing checks give "degraded"
// with 200; all failing gives 503.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks, healthy := h.runChecks(ctx, true)
	status := h.status(checks)

	code := http.StatusOK
	switch {
	case len(checks) > 0 && healthy == 0:
		status.Status = statusUnhealthy
		code = http.StatusServiceUnavailable
	case healthy < len(checks):
		status.Status = statusDegraded
	}
	writeJSON(w, code, status)
}

func (h *Handler) status(checks map[string]ComponentHealth) Status {
	return Status{
		Status:    statusHealthy,
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
}

func (h *Handler) runChecks(ctx context.Context, withAdvisory bool) (map[string]ComponentHealth, int) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		if h.advisory[name] && !withAdvisory {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]ComponentHealth, len(names))
	healthy := 0
	for _, name := range names {
		start := time.Now()
		err := h.checks[name].Health(ctx)
		elapsed := time.Since(start)

		if err != nil {
			h.log.Error("Health check failed", "component", name, "error", err, "elapsed", elapsed)
			results[name] = ComponentHealth{
				Status:       statusUnhealthy,
				ResponseTime: elapsed.String(),
				Error:        err.Error(),
			}
			continue
		}
		healthy++
		results[name] = ComponentHealth{
			Status:       statusHealthy,
			ResponseTime: elapsed.String(),
		}
	}
	return results, healthy
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
