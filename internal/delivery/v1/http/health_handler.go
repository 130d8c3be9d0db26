package http

import (
	"context"
	"net/http"
	"time"

	"github.com/DRSN-tech/market-crawler/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// HealthCheck проверяет одну зависимость воркера, например ping базы.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []HealthCheck
	logger logger.Logger
}

func NewHealthHandler(logger logger.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness опрашивает все зависимости и возвращает 503, если хотя бы одна недоступна.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.Warnf("readiness check %s failed: %v", c.Name, err)
			writeJSON(w, http.StatusServiceUnavailable, NewErrorResponse(http.StatusServiceUnavailable, c.Name+" unavailable"))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
