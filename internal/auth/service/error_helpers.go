package service

import (
	"errors"
	"net/http"

	accountrepo "github.com/AlibekovAA/member-chat/internal/account/repository"
	authrepo "github.com/AlibekovAA/member-chat/internal/auth/repository"
	"github.com/AlibekovAA/member-chat/internal/common/db"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
)

func handleCircuitBreakerError(err error) error {
	if errors.Is(err, commonerrors.ErrCircuitOpen) {
		return ErrServiceUnavailable.WithCause(err)
	}
	return err
}

func newInternalError(code, message string, cause error) commonerrors.DomainError {
	err := commonerrors.NewDomainError(
		code,
		commonerrors.CategoryInternal,
		http.StatusInternalServerError,
		message,
	)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}

// IsExpectedStoreError reports store outcomes that belong to normal operation
// and must not trip the circuit breaker.
func IsExpectedStoreError(err error) bool {
	return errors.Is(err, accountrepo.ErrAccountNotFound) ||
		errors.Is(err, accountrepo.ErrUsernameAlreadyExists) ||
		errors.Is(err, authrepo.ErrTokenNotFound) ||
		errors.Is(err, authrepo.ErrActiveTokenExists) ||
		db.IsDataException(err) ||
		commonerrors.IsDomainError(err)
}
