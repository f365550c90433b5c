package http

import (
	"context"
	"net/http"
	"time"

	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	"github.com/AlibekovAA/member-chat/internal/auth/service"
	"github.com/AlibekovAA/member-chat/internal/common/dto"
	commonhttp "github.com/AlibekovAA/member-chat/internal/common/http"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/common/mapper"
	"github.com/AlibekovAA/member-chat/internal/common/tokenauth"
)

type SessionService interface {
	Register(ctx context.Context, input service.RegisterInput) (service.AuthResult, error)
	Login(ctx context.Context, input service.LoginInput) (service.AuthResult, error)
	Logout(ctx context.Context, principal authdomain.Principal) error
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Handler struct {
	sessions SessionService
	log      *logger.Logger
}

func NewHandler(sessions SessionService, auth tokenauth.Authenticator, requestTimeout time.Duration, log *logger.Logger) http.Handler {
	h := &Handler{sessions: sessions, log: log}
	timeout := commonhttp.WithTimeout(requestTimeout)
	post := commonhttp.RequireMethod(http.MethodPost)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", post(timeout(h.register)))
	mux.HandleFunc("/api/auth/login", post(timeout(h.login)))
	mux.Handle("/api/auth/logout", post(tokenauth.Protect(auth, log, timeout(h.logout)).ServeHTTP))
	return mux
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r, "register")
	if !ok {
		return
	}

	result, err := h.sessions.Register(r.Context(), service.RegisterInput(req))
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	commonhttp.WriteJSON(w, http.StatusCreated, authResponse(result))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r, "login")
	if !ok {
		return
	}

	result, err := h.sessions.Login(r.Context(), service.LoginInput(req))
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, authResponse(result))
}

// decodeCredentials writes the error response itself and reports false when
// the body is not a JSON object.
func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request, action string) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": action}).Warnf("%s failed: invalid json: %v", action, err)
		commonhttp.HandleError(w, r, err, h.log)
		return credentialsRequest{}, false
	}
	return req, true
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	principal, _ := tokenauth.FromContext(r.Context())

	if err := h.sessions.Logout(r.Context(), principal); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteNoContent(w)
}

func authResponse(result service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		Account: mapper.AccountToDTO(result.Account),
		Token:   result.Token.Key,
	}
}
