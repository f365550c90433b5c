package service

import (
	"context"
	"errors"
	"net/http"

	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	chatdomain "github.com/AlibekovAA/member-chat/internal/chat/domain"
	chatrepo "github.com/AlibekovAA/member-chat/internal/chat/repository"
	"github.com/AlibekovAA/member-chat/internal/common/db"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/common/resilience"
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

var ErrEmptyText = commonerrors.NewDomainError(
	"EMPTY_TEXT",
	commonerrors.CategoryValidation,
	http.StatusBadRequest,
	"invalid input",
).WithField("text", "This field may not be blank.")

// Publisher receives every message after it has been stored.
type Publisher interface {
	PublishMessage(msg chatdomain.MessageWithAuthor)
}

type ChatService struct {
	repo      chatrepo.Repository
	publisher Publisher
	breaker   *resilience.CircuitBreaker
	log       *logger.Logger
}

func NewChatService(repo chatrepo.Repository, publisher Publisher, breaker *resilience.CircuitBreaker, log *logger.Logger) *ChatService {
	return &ChatService{
		repo:      repo,
		publisher: publisher,
		breaker:   breaker,
		log:       log,
	}
}

func (s *ChatService) List(ctx context.Context, principal authdomain.Principal) ([]chatdomain.MessageWithAuthor, error) {
	var messages []chatdomain.MessageWithAuthor
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		messages, err = s.repo.ListAll(ctx)
		return err
	})
	if err != nil {
		s.log.Errorf("list messages failed account_id=%s: %v", principal.Account.ID, err)
		return nil, mapStoreError(err)
	}

	metrics.ChatFeedReads.Inc()
	metrics.ChatFeedSize.Observe(float64(len(messages)))
	return messages, nil
}

// Post stores text as a new message by the caller. Whitespace-only text is
// accepted; only the empty string is rejected.
func (s *ChatService) Post(ctx context.Context, principal authdomain.Principal, text string) (chatdomain.MessageWithAuthor, error) {
	if text == "" {
		s.log.WithFields(ctx, logger.Fields{
			"account_id": string(principal.Account.ID),
			"action":     "post_message_empty",
		}).Warn("post message rejected: empty text")
		return chatdomain.MessageWithAuthor{}, ErrEmptyText
	}

	var msg chatdomain.Message
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		msg, err = s.repo.Append(ctx, principal.Account.ID, text)
		return err
	})
	if err != nil {
		if errors.Is(err, chatrepo.ErrEmptyText) {
			return chatdomain.MessageWithAuthor{}, ErrEmptyText
		}
		s.log.WithFields(ctx, logger.Fields{
			"account_id": string(principal.Account.ID),
			"action":     "post_message_failed",
		}).Errorf("post message failed: %v", err)
		return chatdomain.MessageWithAuthor{}, mapStoreError(err)
	}

	posted := chatdomain.MessageWithAuthor{Message: msg, Author: principal.Account}
	metrics.ChatMessagesPosted.Inc()

	if s.publisher != nil {
		s.publisher.PublishMessage(posted)
	}

	s.log.WithFields(ctx, logger.Fields{
		"account_id": string(principal.Account.ID),
		"message_id": msg.ID,
		"action":     "post_message_success",
	}).Debug("message posted")
	return posted, nil
}

func (s *ChatService) call(ctx context.Context, fn func(context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	return s.breaker.Call(ctx, fn)
}

// IsExpectedStoreError keeps rejected input from counting as a store failure.
func IsExpectedStoreError(err error) bool {
	return errors.Is(err, chatrepo.ErrEmptyText) || db.IsDataException(err)
}

func mapStoreError(err error) error {
	if commonerrors.IsDomainError(err) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return commonerrors.ErrDatabaseError.WithCause(err)
}
