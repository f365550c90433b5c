package websocket

import (
	"context"
	"sync"
	"sync/atomic"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	chatdomain "github.com/AlibekovAA/member-chat/internal/chat/domain"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/common/mapper"
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

type revocation struct {
	key       string
	accountID accountdomain.ID
	keep      string
}

func (r revocation) matches(c *Client) bool {
	if r.key != "" {
		return c.tokenKey == r.key
	}
	return c.accountID == r.accountID && c.tokenKey != r.keep
}

// Hub fans out new feed messages to every connected client. The clients map
// is owned by the Run goroutine; everything else talks to it over channels.
type Hub struct {
	clients     map[*Client]struct{}
	register    chan *Client
	unregister  chan *Client
	broadcast   chan []byte
	revoke      chan revocation
	clientCount atomic.Int64
	log         *logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	stopOnce    sync.Once
}

func NewHub(log *logger.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		revoke:     make(chan revocation, 16),
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register returns false once the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) ClientCount() int64 {
	return h.clientCount.Load()
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			total := h.clientCount.Add(1)
			metrics.ChatWebSocketConnectionsActive.Inc()
			h.log.WithFields(h.ctx, logger.Fields{
				"account_id": string(client.accountID),
				"total":      total,
				"action":     "ws_register",
			}).Info("websocket client registered")

		case client := <-h.unregister:
			h.remove(client, "client_closed")

		case payload := <-h.broadcast:
			metrics.ChatWebSocketBroadcastsTotal.Inc()
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					metrics.ChatWebSocketDroppedMessages.Inc()
					h.log.WithFields(h.ctx, logger.Fields{
						"account_id": string(client.accountID),
						"action":     "ws_slow_client",
					}).Warn("websocket send buffer full, dropping client")
					h.remove(client, "slow_client")
				}
			}

		case r := <-h.revoke:
			for client := range h.clients {
				if r.matches(client) {
					client.setCloseReason(TypeRevoked)
					h.remove(client, "token_revoked")
				}
			}
		}
	}
}

// remove is only called from Run, so send is closed exactly once.
func (h *Hub) remove(client *Client, reason string) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	total := h.clientCount.Add(-1)
	metrics.ChatWebSocketConnectionsActive.Dec()
	metrics.ChatWebSocketDisconnections.WithLabelValues(reason).Inc()
	h.log.WithFields(h.ctx, logger.Fields{
		"account_id": string(client.accountID),
		"reason":     reason,
		"total":      total,
		"action":     "ws_unregister",
	}).Info("websocket client unregistered")
}

func (h *Hub) shutdown() {
	for client := range h.clients {
		client.setCloseReason(TypeShutdown)
		h.remove(client, "shutdown")
	}
	h.log.WithFields(context.Background(), logger.Fields{
		"action": "ws_hub_shutdown",
	}).Info("websocket hub shutdown completed")
}

// Shutdown disconnects every client and waits for Run to return.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(h.cancel)
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) PublishMessage(msg chatdomain.MessageWithAuthor) {
	payload, err := encode(TypeMessage, mapper.MessageToDTO(msg))
	if err != nil {
		h.log.Errorf("websocket failed to marshal message id=%d: %v", msg.ID, err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.ctx.Done():
	}
}

func (h *Hub) TokenRevoked(key string) {
	h.sendRevocation(revocation{key: key})
}

func (h *Hub) AccountTokensRevoked(accountID accountdomain.ID, keep string) {
	h.sendRevocation(revocation{accountID: accountID, keep: keep})
}

func (h *Hub) sendRevocation(r revocation) {
	select {
	case h.revoke <- r:
	case <-h.ctx.Done():
	}
}
