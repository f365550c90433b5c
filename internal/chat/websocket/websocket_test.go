package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	chatdomain "github.com/AlibekovAA/member-chat/internal/chat/domain"
	"github.com/AlibekovAA/member-chat/internal/common/config"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
)

var errUnknownToken = commonerrors.NewPublicDomainError(
	"INVALID_CREDENTIAL",
	commonerrors.CodeAuthenticationFailed,
	commonerrors.CategoryAuth,
	http.StatusUnauthorized,
	"Invalid or missing authentication credentials.",
)

type stubAuthenticator struct {
	principals map[string]authdomain.Principal
}

func (s stubAuthenticator) Authenticate(_ context.Context, header string) (authdomain.Principal, error) {
	p, ok := s.principals[header]
	if !ok {
		return authdomain.Principal{}, errUnknownToken
	}
	return p, nil
}

func principal(account, key string) authdomain.Principal {
	return authdomain.Principal{
		Account: accountdomain.Account{ID: accountdomain.ID(account), Username: account},
		Token:   authdomain.Token{Key: key, AccountID: accountdomain.ID(account)},
	}
}

type testServer struct {
	hub *Hub
	srv *httptest.Server
	url string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logger.NewWithWriter(io.Discard, "test", "info")
	hub := NewHub(log)
	go hub.Run()

	auth := stubAuthenticator{principals: map[string]authdomain.Principal{
		"Token alice-1": principal("alice", "alice-1"),
		"Token alice-2": principal("alice", "alice-2"),
		"Token bob-1":   principal("bob", "bob-1"),
	}}
	cfg := config.DefaultWebSocketConfig()
	cfg.AuthTimeout = 2 * time.Second

	srv := httptest.NewServer(NewHandler(hub, auth, cfg, log))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	})

	return &testServer{hub: hub, srv: srv, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

func (s *testServer) dialHeader(t *testing.T, key string) *gorillaWS.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Authorization", "Token "+key)
	conn, _, err := gorillaWS.DefaultDialer.Dial(s.url, header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	expectType(t, conn, TypeAuthOK)
	return conn
}

func (s *testServer) waitForClients(t *testing.T, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.hub.ClientCount() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", n, s.hub.ClientCount())
}

func readFrame(t *testing.T, conn *gorillaWS.Conn) WSMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid frame %q: %v", data, err)
	}
	return msg
}

func expectType(t *testing.T, conn *gorillaWS.Conn, want MessageType) WSMessage {
	t.Helper()
	msg := readFrame(t, conn)
	if msg.Type != want {
		t.Fatalf("expected %s frame, got %s", want, msg.Type)
	}
	return msg
}

func TestHandler_RejectsBadHeaderBeforeUpgrade(t *testing.T) {
	s := newTestServer(t)

	header := http.Header{}
	header.Set("Authorization", "Token nope")
	_, resp, err := gorillaWS.DefaultDialer.Dial(s.url, header)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}

func TestHandler_AuthFrame(t *testing.T) {
	s := newTestServer(t)

	conn, _, err := gorillaWS.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "auth", "payload": map[string]string{"token": "bob-1"}}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	expectType(t, conn, TypeAuthOK)
	s.waitForClients(t, 1)
}

func TestHandler_BadAuthFrame(t *testing.T) {
	s := newTestServer(t)

	conn, _, err := gorillaWS.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "auth", "payload": map[string]string{"token": "nope"}}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	msg := expectType(t, conn, TypeError)

	var payload ErrorPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if payload.Code != commonerrors.CodeAuthenticationFailed {
		t.Errorf("expected authentication_failed, got %s", payload.Code)
	}
	if s.hub.ClientCount() != 0 {
		t.Error("expected no registered clients")
	}
}

func TestHub_BroadcastsPublishedMessages(t *testing.T) {
	s := newTestServer(t)
	alice := s.dialHeader(t, "alice-1")
	bob := s.dialHeader(t, "bob-1")
	s.waitForClients(t, 2)

	s.hub.PublishMessage(chatdomain.MessageWithAuthor{
		Message: chatdomain.Message{ID: 1, Text: "hi", CreatedAt: time.Now()},
		Author:  accountdomain.Account{ID: "alice", Username: "alice"},
	})

	for _, conn := range []*gorillaWS.Conn{alice, bob} {
		msg := expectType(t, conn, TypeMessage)
		var payload struct {
			ID     int64  `json:"id"`
			Text   string `json:"text"`
			Author struct {
				Username string `json:"username"`
			} `json:"author"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if payload.ID != 1 || payload.Text != "hi" || payload.Author.Username != "alice" {
			t.Errorf("unexpected payload: %+v", payload)
		}
	}
}

func TestHub_DisconnectsRevokedToken(t *testing.T) {
	s := newTestServer(t)
	alice := s.dialHeader(t, "alice-1")
	bob := s.dialHeader(t, "bob-1")
	s.waitForClients(t, 2)

	s.hub.TokenRevoked("alice-1")

	expectType(t, alice, TypeRevoked)
	s.waitForClients(t, 1)

	s.hub.PublishMessage(chatdomain.MessageWithAuthor{Message: chatdomain.Message{ID: 2, Text: "still here"}})
	expectType(t, bob, TypeMessage)
}

func TestHub_AccountRevocationKeepsNewToken(t *testing.T) {
	s := newTestServer(t)
	old := s.dialHeader(t, "alice-1")
	fresh := s.dialHeader(t, "alice-2")
	s.waitForClients(t, 2)

	s.hub.AccountTokensRevoked("alice", "alice-2")

	expectType(t, old, TypeRevoked)
	s.waitForClients(t, 1)

	s.hub.PublishMessage(chatdomain.MessageWithAuthor{Message: chatdomain.Message{ID: 3, Text: "x"}})
	expectType(t, fresh, TypeMessage)
}

func TestHub_ShutdownNotifiesClients(t *testing.T) {
	s := newTestServer(t)
	conn := s.dialHeader(t, "bob-1")
	s.waitForClients(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.hub.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	expectType(t, conn, TypeShutdown)
	if s.hub.Register(&Client{}) {
		t.Error("expected register to fail after shutdown")
	}
}
