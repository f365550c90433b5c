package websocket

import (
	"time"

	gorillaWS "github.com/gorilla/websocket"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	"github.com/AlibekovAA/member-chat/internal/common/config"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
)

type Client struct {
	hub       *Hub
	conn      *gorillaWS.Conn
	accountID accountdomain.ID
	tokenKey  string
	send      chan []byte
	cfg       config.WebSocketConfig
	log       *logger.Logger

	// written by the hub before send is closed, read by writePump after
	closeReason MessageType
}

func NewClient(hub *Hub, conn *gorillaWS.Conn, principal authdomain.Principal, cfg config.WebSocketConfig, log *logger.Logger) *Client {
	bufSize := cfg.SendBufSize
	if bufSize <= 0 {
		bufSize = config.DefaultWebSocketConfig().SendBufSize
	}
	return &Client{
		hub:       hub,
		conn:      conn,
		accountID: principal.Account.ID,
		tokenKey:  principal.Token.Key,
		send:      make(chan []byte, bufSize),
		cfg:       cfg,
		log:       log,
	}
}

func (c *Client) setCloseReason(reason MessageType) {
	c.closeReason = reason
}

func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump only keeps the connection alive: the feed is read-only, so
// inbound frames are discarded.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if gorillaWS.IsUnexpectedCloseError(err, gorillaWS.CloseGoingAway, gorillaWS.CloseAbnormalClosure) {
				c.log.Warnf("websocket read error account_id=%s: %v", c.accountID, err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.writeClose()
				return
			}

			if err := c.conn.WriteMessage(gorillaWS.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(gorillaWS.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeClose() {
	code, text := gorillaWS.CloseNormalClosure, ""
	switch c.closeReason {
	case TypeRevoked:
		if frame, err := encode(TypeRevoked, nil); err == nil {
			_ = c.conn.WriteMessage(gorillaWS.TextMessage, frame)
		}
		code, text = gorillaWS.ClosePolicyViolation, "token revoked"
	case TypeShutdown:
		if frame, err := encode(TypeShutdown, nil); err == nil {
			_ = c.conn.WriteMessage(gorillaWS.TextMessage, frame)
		}
		code, text = gorillaWS.CloseGoingAway, "server shutting down"
	}
	_ = c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(code, text))
}
