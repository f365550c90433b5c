package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	"github.com/AlibekovAA/member-chat/internal/common/config"
	"github.com/AlibekovAA/member-chat/internal/common/constants"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	commonhttp "github.com/AlibekovAA/member-chat/internal/common/http"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/common/tokenauth"
)

// Handler upgrades /ws/chat. Callers that can set headers authenticate with
// the Authorization header before the upgrade; browsers send an auth frame
// as their first message instead.
type Handler struct {
	hub      *Hub
	auth     tokenauth.Authenticator
	cfg      config.WebSocketConfig
	upgrader gorillaWS.Upgrader
	log      *logger.Logger
}

func NewHandler(hub *Hub, auth tokenauth.Authenticator, cfg config.WebSocketConfig, log *logger.Logger) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		cfg:  cfg,
		upgrader: gorillaWS.Upgrader{
			ReadBufferSize:  constants.WebSocketReadBufferSize,
			WriteBufferSize: constants.WebSocketWriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				host := r.Host
				if host == "" {
					host = r.URL.Host
				}
				return origin == "http://"+host || origin == "https://"+host
			},
		},
		log: log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		commonhttp.HandleError(w, r, commonerrors.ErrMethodNotAllowed, h.log)
		return
	}

	ctx := r.Context()
	var principal authdomain.Principal
	authenticated := false

	if header := r.Header.Get("Authorization"); header != "" {
		p, err := h.auth.Authenticate(ctx, header)
		if err != nil {
			commonhttp.HandleError(w, r, err, h.log)
			return
		}
		principal = p
		authenticated = true
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithFields(ctx, logger.Fields{
			"action": "ws_upgrade_failed",
		}).Errorf("websocket upgrade failed: %v", err)
		return
	}

	if !authenticated {
		p, ok := h.authenticateFirstFrame(ctx, conn)
		if !ok {
			conn.Close()
			return
		}
		principal = p
	}

	// no writer goroutine exists yet, so writing directly is safe
	_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
	if frame, err := encode(TypeAuthOK, nil); err == nil {
		if err := conn.WriteMessage(gorillaWS.TextMessage, frame); err != nil {
			conn.Close()
			return
		}
	}

	client := NewClient(h.hub, conn, principal, h.cfg, h.log)
	if !h.hub.Register(client) {
		_ = conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	client.Start()

	h.log.WithFields(ctx, logger.Fields{
		"account_id": string(principal.Account.ID),
		"via_header": authenticated,
		"action":     "ws_authenticated",
	}).Info("websocket client authenticated")
}

func (h *Handler) authenticateFirstFrame(ctx context.Context, conn *gorillaWS.Conn) (authdomain.Principal, bool) {
	timeout := h.cfg.AuthTimeout
	if timeout <= 0 {
		timeout = constants.DefaultWebSocketAuthTimeout
	}
	conn.SetReadLimit(h.cfg.MaxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	_, data, err := conn.ReadMessage()
	if err != nil {
		h.log.WithFields(ctx, logger.Fields{
			"action": "ws_auth_read_failed",
		}).Warnf("websocket auth frame not received: %v", err)
		return authdomain.Principal{}, false
	}

	var msg WSMessage
	var payload AuthPayload
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != TypeAuth || json.Unmarshal(msg.Payload, &payload) != nil {
		h.rejectFrame(conn, commonerrors.CodeAuthenticationFailed, "Expected an auth frame.")
		return authdomain.Principal{}, false
	}

	principal, err := h.auth.Authenticate(ctx, "Token "+payload.Token)
	if err != nil {
		detail := "Authentication failed."
		code := commonerrors.CodeAuthenticationFailed
		if domainErr, ok := commonerrors.AsDomainError(err); ok {
			detail = domainErr.Message()
			code = domainErr.PublicCode()
		}
		h.log.WithFields(ctx, logger.Fields{
			"action": "ws_auth_failed",
		}).Warnf("websocket auth frame rejected: %v", err)
		h.rejectFrame(conn, code, detail)
		return authdomain.Principal{}, false
	}

	_ = conn.SetReadDeadline(time.Time{})
	return principal, true
}

func (h *Handler) rejectFrame(conn *gorillaWS.Conn, code, detail string) {
	deadline := time.Now().Add(h.cfg.WriteWait)
	_ = conn.SetWriteDeadline(deadline)
	if frame, err := encode(TypeError, ErrorPayload{Code: code, Detail: detail}); err == nil {
		_ = conn.WriteMessage(gorillaWS.TextMessage, frame)
	}
	_ = conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.ClosePolicyViolation, code))
}
