package http

import (
	"context"
	"net/http"
	"time"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	commonhttp "github.com/AlibekovAA/member-chat/internal/common/http"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/common/mapper"
	"github.com/AlibekovAA/member-chat/internal/common/tokenauth"
	"github.com/AlibekovAA/member-chat/internal/profile/service"
)

type ProfileService interface {
	Get(ctx context.Context, principal authdomain.Principal) accountdomain.Account
	Update(ctx context.Context, principal authdomain.Principal, input service.UpdateInput) (accountdomain.Account, error)
}

type Handler struct {
	profiles ProfileService
	log      *logger.Logger
}

func NewHandler(profiles ProfileService, auth tokenauth.Authenticator, requestTimeout time.Duration, log *logger.Logger) http.Handler {
	h := &Handler{profiles: profiles, log: log}
	timeout := commonhttp.WithTimeout(requestTimeout)

	mux := http.NewServeMux()
	mux.Handle("/api/profile", commonhttp.Methods(map[string]http.HandlerFunc{
		http.MethodGet: tokenauth.Protect(auth, log, timeout(h.get)).ServeHTTP,
		http.MethodPut: tokenauth.Protect(auth, log, timeout(h.update)).ServeHTTP,
	}))
	return mux
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principal, _ := tokenauth.FromContext(r.Context())
	commonhttp.WriteJSON(w, http.StatusOK, mapper.AccountToDTO(h.profiles.Get(r.Context(), principal)))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principal, _ := tokenauth.FromContext(r.Context())

	var input service.UpdateInput
	if err := commonhttp.DecodeJSON(r, &input); err != nil {
		h.log.Warnf("profile update failed: invalid json: %v", err)
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	updated, err := h.profiles.Update(r.Context(), principal, input)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, mapper.AccountToDTO(updated))
}
