package http

import (
	"net/http"

	"github.com/AlibekovAA/member-chat/internal/common/constants"
	"github.com/AlibekovAA/member-chat/internal/common/httpmetrics"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
)

// BuildBaseHandler wraps handler with the middleware every route shares.
func BuildBaseHandler(log *logger.Logger, handler http.Handler) http.Handler {
	metrics := httpmetrics.New()
	recovery := RecoveryMiddleware(log)
	traceID := TraceIDMiddleware
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)
	securityHeaders := SecurityHeadersMiddleware

	return securityHeaders(traceID(recovery(maxRequestSize(metrics.Wrap(handler)))))
}
