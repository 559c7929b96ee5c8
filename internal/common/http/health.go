package http

import (
	"context"
	"net/http"
	"time"

	"github.com/AlibekovAA/examination-system/internal/common/logger"
)

// HealthCheck is a named dependency check such as a database ping.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

func HealthHandler(log *logger.Logger, checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := map[string]any{"status": "ok"}
		healthy := true
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"check":  c.Name,
					"action": "health_check_failed",
				}).Warnf("health check failed: %v", err)
				status[c.Name] = "unavailable"
				healthy = false
				continue
			}
			status[c.Name] = "ok"
		}

		if !healthy {
			status["status"] = "degraded"
			WriteErrorEnvelope(w, http.StatusServiceUnavailable, CodeUnhealthy, "dependency unavailable", status, TraceIDFromContext(r.Context()))
			return
		}
		WriteJSON(w, http.StatusOK, status)
	}
}
