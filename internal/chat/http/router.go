package http

import (
	"context"
	"net/http"
	"time"

	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	chatdomain "github.com/AlibekovAA/member-chat/internal/chat/domain"
	commonhttp "github.com/AlibekovAA/member-chat/internal/common/http"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/common/mapper"
	"github.com/AlibekovAA/member-chat/internal/common/tokenauth"
	"github.com/AlibekovAA/member-chat/internal/common/validation"
)

type ChatService interface {
	List(ctx context.Context, principal authdomain.Principal) ([]chatdomain.MessageWithAuthor, error)
	Post(ctx context.Context, principal authdomain.Principal, text string) (chatdomain.MessageWithAuthor, error)
}

type postMessageRequest struct {
	Text *string `json:"text" validate:"required,pgtext"`
}

type Handler struct {
	chat ChatService
	log  *logger.Logger
}

func NewHandler(chat ChatService, auth tokenauth.Authenticator, requestTimeout time.Duration, log *logger.Logger) http.Handler {
	h := &Handler{chat: chat, log: log}
	timeout := commonhttp.WithTimeout(requestTimeout)

	mux := http.NewServeMux()
	mux.Handle("/api/chat/messages", commonhttp.Methods(map[string]http.HandlerFunc{
		http.MethodGet:  tokenauth.Protect(auth, log, timeout(h.list)).ServeHTTP,
		http.MethodPost: tokenauth.Protect(auth, log, timeout(h.post)).ServeHTTP,
	}))
	return mux
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, _ := tokenauth.FromContext(r.Context())

	messages, err := h.chat.List(r.Context(), principal)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, mapper.MessagesToDTO(messages))
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	principal, _ := tokenauth.FromContext(r.Context())

	var req postMessageRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("post message failed: invalid json: %v", err)
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	if err := validation.Struct(req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	msg, err := h.chat.Post(r.Context(), principal, *req.Text)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, mapper.MessageToDTO(msg))
}
