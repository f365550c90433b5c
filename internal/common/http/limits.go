package http

import (
	"net/http"

	"github.com/AlibekovAA/member-chat/internal/common/constants"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

// MaxRequestSizeMiddleware refuses bodies that declare a length above
// maxBytes and caps the rest with http.MaxBytesReader, so DecodeJSON sees a
// *http.MaxBytesError once the limit is crossed.
func MaxRequestSizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = constants.DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				metrics.RequestsRejected.WithLabelValues("too_large").Inc()
				writeDomainError(w, commonerrors.ErrRequestTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func writeDomainError(w http.ResponseWriter, err commonerrors.DomainError) {
	if err.HTTPStatus() == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Token")
	}
	WriteErrorEnvelope(w, err.HTTPStatus(), err.PublicCode(), err.Message(), err.Fields())
}
