package http

import (
	"context"
	"net/http"

	"github.com/AlibekovAA/member-chat/internal/common/logger"
)

// HealthCheck reports whether a dependency can serve requests.
type HealthCheck func(ctx context.Context) error

// HealthHandler answers 200 {"status":"ok"} while every check passes and
// 503 {"status":"unavailable"} otherwise.
func HealthHandler(log *logger.Logger, checks ...HealthCheck) http.HandlerFunc {
	return RequireMethod(http.MethodGet)(func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.WithFields(r.Context(), logger.Fields{"action": "health_check"}).Warnf("health check failed: %v", err)
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
