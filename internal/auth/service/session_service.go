package service

import (
	"context"
	"errors"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	accountrepo "github.com/AlibekovAA/member-chat/internal/account/repository"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	authrepo "github.com/AlibekovAA/member-chat/internal/auth/repository"
	commoncrypto "github.com/AlibekovAA/member-chat/internal/common/crypto"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/common/resilience"
	"github.com/AlibekovAA/member-chat/internal/common/validation"
)

// RevocationListener is told about tokens that stopped being valid so that
// long-lived connections opened with them can be dropped.
type RevocationListener interface {
	TokenRevoked(key string)
	// AccountTokensRevoked covers every token of the account except keep.
	AccountTokensRevoked(accountID accountdomain.ID, keep string)
}

type SessionService struct {
	accounts  accountrepo.Repository
	tx        authrepo.TxManager
	tokens    authrepo.TokenRepository
	hasher    commoncrypto.PasswordHasher
	ids       commoncrypto.IDGenerator
	breaker   *resilience.CircuitBreaker
	listeners []RevocationListener
	log       *logger.Logger
}

func NewSessionService(
	accounts accountrepo.Repository,
	tokens authrepo.TokenRepository,
	tx authrepo.TxManager,
	hasher commoncrypto.PasswordHasher,
	ids commoncrypto.IDGenerator,
	breaker *resilience.CircuitBreaker,
	log *logger.Logger,
) *SessionService {
	return &SessionService{
		accounts: accounts,
		tokens:   tokens,
		tx:       tx,
		hasher:   hasher,
		ids:      ids,
		breaker:  breaker,
		log:      log,
	}
}

// AddRevocationListener must be called before the service starts serving.
func (s *SessionService) AddRevocationListener(l RevocationListener) {
	s.listeners = append(s.listeners, l)
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,pgtext,max=150"`
	Password string `json:"password" validate:"required,pgtext,max=128"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required,pgtext,max=150"`
	Password string `json:"password" validate:"required,pgtext,max=128"`
}

type AuthResult struct {
	Account accountdomain.Account
	Token   authdomain.Token
}

func (s *SessionService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "register_attempt",
	}).Info("register attempt")

	if err := validation.Struct(input); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_validation_failed",
		}).Warnf("register validation failed: %v", err)
		return AuthResult{}, err
	}

	err := call(ctx, s.breaker, func(ctx context.Context) error {
		_, err := s.accounts.FindByUsername(ctx, input.Username)
		return err
	})
	switch {
	case err == nil:
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_username_exists",
		}).Warn("register failed: already exists")
		return AuthResult{}, ErrUsernameTaken
	case !errors.Is(err, accountrepo.ErrAccountNotFound):
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_lookup_failed",
		}).Errorf("register failed: %v", err)
		return AuthResult{}, storeError("DB_ERROR", "failed to check username", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return AuthResult{}, newInternalError("HASH_FAILED", "failed to hash password", err)
	}

	id, err := s.ids.NewID()
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_id_generation_failed",
		}).Errorf("register failed: id generation error: %v", err)
		return AuthResult{}, newInternalError("ID_GENERATION_FAILED", "failed to generate account id", err)
	}

	var result AuthResult
	err = call(ctx, s.breaker, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context, stores authrepo.Stores) error {
			account, err := stores.Accounts().Create(ctx, accountdomain.Account{
				ID:           accountdomain.ID(id),
				Username:     input.Username,
				PasswordHash: hash,
			})
			if err != nil {
				return err
			}
			token, err := stores.Tokens().Issue(ctx, account.ID)
			if err != nil {
				return err
			}
			result = AuthResult{Account: account, Token: token}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, accountrepo.ErrUsernameAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"username": input.Username,
				"action":   "register_username_exists",
			}).Warn("register failed: lost race for username")
			return AuthResult{}, ErrUsernameTaken
		}
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_create_failed",
		}).Errorf("register failed: %v", err)
		return AuthResult{}, storeError("DB_ERROR", "failed to create account", err)
	}

	incrementAccountsRegistered()
	s.log.WithFields(ctx, logger.Fields{
		"username":   result.Account.Username,
		"account_id": string(result.Account.ID),
		"action":     "register_success",
	}).Info("register success")

	return result, nil
}

func (s *SessionService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "login_attempt",
	}).Info("login attempt")

	if err := validation.Struct(input); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "login_validation_failed",
		}).Warnf("login validation failed: %v", err)
		recordLogin("invalid_input")
		return AuthResult{}, err
	}

	var account accountdomain.Account
	err := call(ctx, s.breaker, func(ctx context.Context) error {
		var err error
		account, err = s.accounts.FindByUsername(ctx, input.Username)
		return err
	})
	if err != nil {
		if errors.Is(err, accountrepo.ErrAccountNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"username": input.Username,
				"action":   "login_user_not_found",
			}).Warn("login failed: not found")
			recordLogin("invalid_credentials")
			return AuthResult{}, ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		recordLogin("error")
		return AuthResult{}, storeError("DB_ERROR", "failed to fetch account", err)
	}

	if !s.hasher.Verify(input.Password, account.PasswordHash) {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "login_invalid_password",
		}).Warn("login failed: invalid password")
		recordLogin("invalid_credentials")
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.rotateToken(ctx, account.ID)
	if err != nil {
		if errors.Is(err, accountrepo.ErrAccountNotFound) {
			recordLogin("invalid_credentials")
			return AuthResult{}, ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"username":   input.Username,
			"account_id": string(account.ID),
			"action":     "login_token_issue_failed",
		}).Errorf("login failed: token issue error: %v", err)
		recordLogin("error")
		return AuthResult{}, storeError("DB_ERROR", "failed to issue token", err)
	}

	s.notifyAccountRevoked(account.ID, token.Key)

	recordLogin("success")
	s.log.WithFields(ctx, logger.Fields{
		"username":   account.Username,
		"account_id": string(account.ID),
		"action":     "login_success",
	}).Info("login success")

	return AuthResult{Account: account, Token: token}, nil
}

// rotateToken replaces every token of the account with a single new one in
// one transaction. A concurrent login for the same account can win the
// single-token constraint between our revoke and issue; that case is retried
// once.
func (s *SessionService) rotateToken(ctx context.Context, accountID accountdomain.ID) (authdomain.Token, error) {
	var token authdomain.Token
	var err error

	for attempt := 0; attempt < 2; attempt++ {
		err = call(ctx, s.breaker, func(ctx context.Context) error {
			return s.tx.WithTx(ctx, func(ctx context.Context, stores authrepo.Stores) error {
				if err := stores.Accounts().Lock(ctx, accountID); err != nil {
					return err
				}
				if _, err := stores.Tokens().RevokeAllForAccount(ctx, accountID); err != nil {
					return err
				}
				issued, err := stores.Tokens().Issue(ctx, accountID)
				if err != nil {
					return err
				}
				token = issued
				return nil
			})
		})
		if !errors.Is(err, authrepo.ErrActiveTokenExists) {
			break
		}
		s.log.WithFields(ctx, logger.Fields{
			"account_id": string(accountID),
			"action":     "login_token_conflict",
		}).Warn("concurrent login detected, retrying token rotation")
	}

	return token, err
}

func (s *SessionService) Logout(ctx context.Context, principal authdomain.Principal) error {
	err := call(ctx, s.breaker, func(ctx context.Context) error {
		return s.tokens.Revoke(ctx, principal.Token.Key)
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"account_id": string(principal.Account.ID),
			"action":     "logout_revoke_failed",
		}).Errorf("logout failed: %v", err)
		return storeError("DB_ERROR", "failed to revoke token", err)
	}

	for _, l := range s.listeners {
		l.TokenRevoked(principal.Token.Key)
	}

	s.log.WithFields(ctx, logger.Fields{
		"account_id": string(principal.Account.ID),
		"action":     "logout_success",
	}).Info("logout success")
	return nil
}

func (s *SessionService) notifyAccountRevoked(accountID accountdomain.ID, keep string) {
	for _, l := range s.listeners {
		l.AccountTokensRevoked(accountID, keep)
	}
}

// call routes fn through the breaker when one is configured.
func call(ctx context.Context, breaker *resilience.CircuitBreaker, fn func(context.Context) error) error {
	if breaker == nil {
		return fn(ctx)
	}
	return breaker.Call(ctx, fn)
}

// storeError keeps domain errors (open circuit, timeouts already mapped) and
// wraps everything else so raw storage errors never reach a client.
func storeError(code, message string, err error) error {
	err = handleCircuitBreakerError(err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if _, ok := commonerrors.AsDomainError(err); ok {
		return err
	}
	return newInternalError(code, message, err)
}
