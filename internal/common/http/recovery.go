package http

import (
	"errors"
	"net/http"
	"runtime/debug"

	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

// RecoveryMiddleware turns a handler panic into a 500 internal_error.
// http.ErrAbortHandler keeps its meaning and is rethrown.
func RecoveryMiddleware(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				metrics.PanicsRecovered.Inc()
				log.WithFields(r.Context(), logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"action": "panic_recovered",
				}).Errorf("panic recovered: %v\n%s", rec, debug.Stack())
				writeDomainError(w, commonerrors.ErrInternalError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
