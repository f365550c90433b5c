package service

import (
	"context"
	"errors"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	accountrepo "github.com/AlibekovAA/member-chat/internal/account/repository"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	authservice "github.com/AlibekovAA/member-chat/internal/auth/service"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/common/resilience"
	"github.com/AlibekovAA/member-chat/internal/common/validation"
)

type Service struct {
	accounts accountrepo.Repository
	breaker  *resilience.CircuitBreaker
	log      *logger.Logger
}

func NewService(accounts accountrepo.Repository, breaker *resilience.CircuitBreaker, log *logger.Logger) *Service {
	return &Service{accounts: accounts, breaker: breaker, log: log}
}

// UpdateInput is a partial update: nil fields are left untouched.
type UpdateInput struct {
	Username *string `json:"username"`
}

func (s *Service) Get(_ context.Context, principal authdomain.Principal) accountdomain.Account {
	return principal.Account
}

func (s *Service) Update(ctx context.Context, principal authdomain.Principal, input UpdateInput) (accountdomain.Account, error) {
	if input.Username == nil {
		return principal.Account, nil
	}
	username := *input.Username

	if err := validation.Field("username", username, "required,pgtext,max=150"); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"account_id": string(principal.Account.ID),
			"action":     "profile_update_validation_failed",
		}).Warnf("profile update validation failed: %v", err)
		return accountdomain.Account{}, err
	}

	var updated accountdomain.Account
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.accounts.UpdateUsername(ctx, principal.Account.ID, username)
		return err
	})
	if err != nil {
		if errors.Is(err, accountrepo.ErrUsernameAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"account_id": string(principal.Account.ID),
				"username":   username,
				"action":     "profile_update_username_exists",
			}).Warn("profile update failed: username taken")
			return accountdomain.Account{}, authservice.ErrUsernameTaken
		}
		s.log.WithFields(ctx, logger.Fields{
			"account_id": string(principal.Account.ID),
			"action":     "profile_update_failed",
		}).Errorf("profile update failed: %v", err)
		return accountdomain.Account{}, mapStoreError(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"account_id": string(updated.ID),
		"username":   updated.Username,
		"action":     "profile_update_success",
	}).Info("profile updated")
	return updated, nil
}

func (s *Service) call(ctx context.Context, fn func(context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	return s.breaker.Call(ctx, fn)
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, accountrepo.ErrAccountNotFound):
		// deleted after the request was authenticated
		return authservice.ErrInvalidCredential
	case commonerrors.IsDomainError(err), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return commonerrors.ErrDatabaseError.WithCause(err)
	}
}
