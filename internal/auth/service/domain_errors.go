package service

import (
	"net/http"

	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
)

const (
	invalidCredentialsMessage   = "Invalid credentials."
	authenticationFailedMessage = "Invalid or missing authentication credentials."
	usernameTakenMessage        = "A user with that username already exists."
)

var (
	ErrInvalidCredentials = commonerrors.NewPublicDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CodeInvalidCredentials,
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		invalidCredentialsMessage,
	)

	ErrUsernameTaken = commonerrors.NewDomainError(
		"USERNAME_TAKEN",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"invalid input",
	).WithField("username", usernameTakenMessage)

	// The three authentication failures differ only in their internal code.
	ErrMissingCredential = commonerrors.NewPublicDomainError(
		"MISSING_CREDENTIAL",
		commonerrors.CodeAuthenticationFailed,
		commonerrors.CategoryAuth,
		http.StatusUnauthorized,
		authenticationFailedMessage,
	)

	ErrMalformedCredential = commonerrors.NewPublicDomainError(
		"MALFORMED_CREDENTIAL",
		commonerrors.CodeAuthenticationFailed,
		commonerrors.CategoryAuth,
		http.StatusUnauthorized,
		authenticationFailedMessage,
	)

	ErrInvalidCredential = commonerrors.NewPublicDomainError(
		"INVALID_CREDENTIAL",
		commonerrors.CodeAuthenticationFailed,
		commonerrors.CategoryAuth,
		http.StatusUnauthorized,
		authenticationFailedMessage,
	)

	ErrServiceUnavailable = commonerrors.NewDomainError(
		"SERVICE_UNAVAILABLE",
		commonerrors.CategoryExternal,
		http.StatusServiceUnavailable,
		"service temporarily unavailable",
	)
)
