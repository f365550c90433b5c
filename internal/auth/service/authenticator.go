package service

import (
	"context"
	"errors"
	"strings"

	accountrepo "github.com/AlibekovAA/member-chat/internal/account/repository"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	authrepo "github.com/AlibekovAA/member-chat/internal/auth/repository"
	commoncrypto "github.com/AlibekovAA/member-chat/internal/common/crypto"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/common/resilience"
)

// TokenScheme is the case-sensitive scheme of the Authorization header.
const TokenScheme = "Token"

// Authenticator resolves "Token <key>" credentials. It only reads from the
// stores and is safe for concurrent use.
type Authenticator struct {
	tokens   authrepo.TokenRepository
	accounts accountrepo.Repository
	breaker  *resilience.CircuitBreaker
	log      *logger.Logger
}

func NewAuthenticator(
	tokens authrepo.TokenRepository,
	accounts accountrepo.Repository,
	breaker *resilience.CircuitBreaker,
	log *logger.Logger,
) *Authenticator {
	return &Authenticator{
		tokens:   tokens,
		accounts: accounts,
		breaker:  breaker,
		log:      log,
	}
}

func (a *Authenticator) Authenticate(ctx context.Context, header string) (authdomain.Principal, error) {
	incrementAuthentications()

	if header == "" {
		recordAuthenticationFailure("missing")
		return authdomain.Principal{}, ErrMissingCredential
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != TokenScheme {
		recordAuthenticationFailure("malformed")
		return authdomain.Principal{}, ErrMalformedCredential
	}

	if !commoncrypto.IsWellFormedKey(parts[1]) {
		recordAuthenticationFailure("invalid")
		return authdomain.Principal{}, ErrInvalidCredential
	}

	var principal authdomain.Principal
	err := call(ctx, a.breaker, func(ctx context.Context) error {
		token, err := a.tokens.FindByKey(ctx, parts[1])
		if err != nil {
			return err
		}
		account, err := a.accounts.FindByID(ctx, token.AccountID)
		if err != nil {
			return err
		}
		principal = authdomain.Principal{Account: account, Token: token}
		return nil
	})
	if err != nil {
		if errors.Is(err, authrepo.ErrTokenNotFound) || errors.Is(err, accountrepo.ErrAccountNotFound) {
			recordAuthenticationFailure("invalid")
			return authdomain.Principal{}, ErrInvalidCredential
		}
		a.log.WithFields(ctx, logger.Fields{
			"action": "authenticate_lookup_failed",
		}).Errorf("authentication lookup failed: %v", err)
		recordAuthenticationFailure("error")
		return authdomain.Principal{}, storeError("DB_ERROR", "failed to resolve token", err)
	}

	return principal, nil
}
