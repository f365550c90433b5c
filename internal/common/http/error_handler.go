package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/AlibekovAA/member-chat/internal/common/constants"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	"github.com/AlibekovAA/member-chat/internal/common/httpmetrics"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

// HandleError renders err as an error envelope. The text of errors that are
// not domain errors stays in the log; clients get internal_error.
func HandleError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	if err == nil {
		return
	}

	domainErr, known := classify(err)
	status := domainErr.HTTPStatus()
	entry := log.WithFields(r.Context(), logger.Fields{
		"error_code": domainErr.Code(),
		"status":     status,
		"method":     r.Method,
		"path":       r.URL.Path,
	})

	switch {
	case !known:
		entry.WithField("action", "unhandled_error").Errorf("unhandled error: %v", err)
	case status >= http.StatusInternalServerError:
		entry.WithField("action", "domain_error").Errorf("request failed: %v", err)
	case log.ShouldLog(logger.DEBUG):
		entry.WithField("action", "domain_error").Debugf("request rejected: %v", err)
	}

	if known {
		metrics.DomainErrorsTotal.WithLabelValues(
			string(domainErr.Category()),
			domainErr.Code(),
			strconv.Itoa(status),
		).Inc()
	}
	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(status),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()

	writeDomainError(w, domainErr)
}

// classify maps err onto the domain error that is rendered. known is false
// when err carried no domain error and was replaced by ErrInternalError.
func classify(err error) (domainErr commonerrors.DomainError, known bool) {
	if de, ok := commonerrors.AsDomainError(err); ok {
		return de, true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return commonerrors.ErrRequestTimeout.WithCause(err), true
	}
	return commonerrors.ErrInternalError, false
}

func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(constants.TraceIDKey).(string)
	return traceID
}
