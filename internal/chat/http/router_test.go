package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	authservice "github.com/AlibekovAA/member-chat/internal/auth/service"
	chatdomain "github.com/AlibekovAA/member-chat/internal/chat/domain"
	chathttp "github.com/AlibekovAA/member-chat/internal/chat/http"
	chatservice "github.com/AlibekovAA/member-chat/internal/chat/service"
	"github.com/AlibekovAA/member-chat/internal/common/dto"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	commonhttp "github.com/AlibekovAA/member-chat/internal/common/http"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
)

type mockChatService struct {
	listFunc func(ctx context.Context, principal authdomain.Principal) ([]chatdomain.MessageWithAuthor, error)
	postFunc func(ctx context.Context, principal authdomain.Principal, text string) (chatdomain.MessageWithAuthor, error)
}

func (m *mockChatService) List(ctx context.Context, principal authdomain.Principal) ([]chatdomain.MessageWithAuthor, error) {
	return m.listFunc(ctx, principal)
}

func (m *mockChatService) Post(ctx context.Context, principal authdomain.Principal, text string) (chatdomain.MessageWithAuthor, error) {
	return m.postFunc(ctx, principal, text)
}

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(_ context.Context, header string) (authdomain.Principal, error) {
	if header != "Token good" {
		return authdomain.Principal{}, authservice.ErrInvalidCredential
	}
	return authdomain.Principal{
		Account: accountdomain.Account{ID: "acc-1", Username: "alice"},
		Token:   authdomain.Token{Key: "good"},
	}, nil
}

func newHandler(svc *mockChatService) http.Handler {
	return chathttp.NewHandler(svc, stubAuthenticator{}, 5*time.Second, logger.NewWithWriter(io.Discard, "test", "info"))
}

func do(h http.Handler, method, body, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/chat/messages", bytes.NewBufferString(body))
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) commonhttp.ErrorEnvelope {
	t.Helper()
	var env commonhttp.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestChatHTTP_List(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &mockChatService{
		listFunc: func(_ context.Context, principal authdomain.Principal) ([]chatdomain.MessageWithAuthor, error) {
			if principal.Account.ID != "acc-1" {
				t.Errorf("unexpected principal %q", principal.Account.ID)
			}
			return []chatdomain.MessageWithAuthor{
				{
					Message: chatdomain.Message{ID: 1, AuthorID: "acc-1", Text: "hi", CreatedAt: created},
					Author:  accountdomain.Account{ID: "acc-1", Username: "alice"},
				},
				{
					Message: chatdomain.Message{ID: 2, AuthorID: "acc-2", Text: "yo", CreatedAt: created.Add(time.Second)},
					Author:  accountdomain.Account{ID: "acc-2", Username: "bob"},
				},
			}, nil
		},
	}

	rec := do(newHandler(svc), http.MethodGet, "", "Token good")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var msgs []dto.Message
	if err := json.NewDecoder(rec.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "hi" || msgs[0].Author.Username != "alice" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].ID != 2 || msgs[1].Author.Username != "bob" {
		t.Errorf("unexpected second message: %+v", msgs[1])
	}
}

func TestChatHTTP_List_EmptyFeedIsArray(t *testing.T) {
	svc := &mockChatService{
		listFunc: func(context.Context, authdomain.Principal) ([]chatdomain.MessageWithAuthor, error) {
			return nil, nil
		},
	}

	rec := do(newHandler(svc), http.MethodGet, "", "Token good")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestChatHTTP_Unauthenticated(t *testing.T) {
	svc := &mockChatService{
		listFunc: func(context.Context, authdomain.Principal) ([]chatdomain.MessageWithAuthor, error) {
			t.Fatal("list should not be called")
			return nil, nil
		},
		postFunc: func(context.Context, authdomain.Principal, string) (chatdomain.MessageWithAuthor, error) {
			t.Fatal("post should not be called")
			return chatdomain.MessageWithAuthor{}, nil
		},
	}

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := do(newHandler(svc), method, `{"text":"hi"}`, "Token bad")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", method, rec.Code)
		}
		if got := rec.Header().Get("WWW-Authenticate"); got != "Token" {
			t.Errorf("%s: expected WWW-Authenticate Token, got %q", method, got)
		}
	}
}

func TestChatHTTP_Post(t *testing.T) {
	var gotText string
	svc := &mockChatService{
		postFunc: func(_ context.Context, principal authdomain.Principal, text string) (chatdomain.MessageWithAuthor, error) {
			gotText = text
			return chatdomain.MessageWithAuthor{
				Message: chatdomain.Message{ID: 7, AuthorID: principal.Account.ID, Text: text, CreatedAt: time.Now()},
				Author:  principal.Account,
			}, nil
		},
	}

	rec := do(newHandler(svc), http.MethodPost, `{"text":"  hi  "}`, "Token good")

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotText != "  hi  " {
		t.Errorf("expected text passed through untouched, got %q", gotText)
	}
	var msg dto.Message
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if msg.ID != 7 || msg.Author.Username != "alice" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestChatHTTP_Post_MissingText(t *testing.T) {
	svc := &mockChatService{
		postFunc: func(context.Context, authdomain.Principal, string) (chatdomain.MessageWithAuthor, error) {
			t.Fatal("post should not be called")
			return chatdomain.MessageWithAuthor{}, nil
		},
	}

	for _, body := range []string{`{}`, ``, `{"text":null}`} {
		rec := do(newHandler(svc), http.MethodPost, body, "Token good")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
		env := decodeEnvelope(t, rec)
		if env.Code != commonerrors.CodeValidation {
			t.Errorf("body %q: expected validation_error, got %s", body, env.Code)
		}
		if len(env.Fields["text"]) == 0 {
			t.Errorf("body %q: expected text field error, got %+v", body, env.Fields)
		}
	}
}

func TestChatHTTP_Post_NullCharacterRejected(t *testing.T) {
	svc := &mockChatService{
		postFunc: func(context.Context, authdomain.Principal, string) (chatdomain.MessageWithAuthor, error) {
			t.Fatal("post should not be called")
			return chatdomain.MessageWithAuthor{}, nil
		},
	}

	rec := do(newHandler(svc), http.MethodPost, `{"text":"hi\u0000there"}`, "Token good")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Code != commonerrors.CodeValidation || len(env.Fields["text"]) == 0 {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestChatHTTP_Post_EmptyText(t *testing.T) {
	svc := &mockChatService{
		postFunc: func(context.Context, authdomain.Principal, string) (chatdomain.MessageWithAuthor, error) {
			return chatdomain.MessageWithAuthor{}, chatservice.ErrEmptyText
		},
	}

	rec := do(newHandler(svc), http.MethodPost, `{"text":""}`, "Token good")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if len(env.Fields["text"]) == 0 {
		t.Errorf("expected text field error, got %+v", env.Fields)
	}
}

func TestChatHTTP_Post_InvalidJSON(t *testing.T) {
	rec := do(newHandler(&mockChatService{}), http.MethodPost, `{"text":`, "Token good")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if len(env.Fields[commonerrors.NonFieldErrors]) == 0 {
		t.Errorf("expected non_field_errors, got %+v", env.Fields)
	}
}

func TestChatHTTP_Post_StoreFailure(t *testing.T) {
	svc := &mockChatService{
		postFunc: func(context.Context, authdomain.Principal, string) (chatdomain.MessageWithAuthor, error) {
			return chatdomain.MessageWithAuthor{}, commonerrors.ErrDatabaseError.WithCause(errors.New("boom"))
		},
	}

	rec := do(newHandler(svc), http.MethodPost, `{"text":"hi"}`, "Token good")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestChatHTTP_MethodNotAllowed(t *testing.T) {
	rec := do(newHandler(&mockChatService{}), http.MethodDelete, "", "Token good")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET, POST" {
		t.Errorf("unexpected Allow header %q", allow)
	}
}
