package tokenauth

import (
	"context"
	"net/http"

	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	commonhttp "github.com/AlibekovAA/member-chat/internal/common/http"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
)

type Authenticator interface {
	Authenticate(ctx context.Context, header string) (authdomain.Principal, error)
}

type contextKey string

const principalKey contextKey = "auth_principal"

// Middleware rejects requests without a valid "Token <key>" header and puts
// the resolved principal into the request context.
func Middleware(auth Authenticator, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				code := "unknown"
				if domainErr, ok := commonerrors.AsDomainError(err); ok {
					code = domainErr.Code()
				}
				log.WithFields(r.Context(), logger.Fields{
					"path":       r.URL.Path,
					"error_code": code,
					"action":     "token_auth_failed",
				}).Warn("token auth failed")
				commonhttp.HandleError(w, r, err, log)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// Protect is Middleware for a single handler func.
func Protect(auth Authenticator, log *logger.Logger, h http.HandlerFunc) http.Handler {
	return Middleware(auth, log)(h)
}

func WithPrincipal(ctx context.Context, p authdomain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func FromContext(ctx context.Context) (authdomain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(authdomain.Principal)
	return p, ok
}
