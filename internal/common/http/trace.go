package http

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/AlibekovAA/member-chat/internal/common/constants"
)

const traceIDHeader = "X-Trace-ID"

// Incoming trace ids are echoed back only when they are short and made of
// characters that are safe to write into log lines.
var validTraceID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// TraceIDMiddleware propagates X-Trace-ID, minting a UUID when the caller
// did not send a usable one.
func TraceIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceIDHeader)
		if !validTraceID.MatchString(traceID) {
			traceID = uuid.NewString()
		}

		w.Header().Set(traceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), constants.TraceIDKey, traceID)))
	})
}
