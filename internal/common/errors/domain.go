package commonerrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "VALIDATION"
	CategoryAuth         ErrorCategory = "AUTH"
	CategoryNotFound     ErrorCategory = "NOT_FOUND"
	CategoryConflict     ErrorCategory = "CONFLICT"
	CategoryUnauthorized ErrorCategory = "UNAUTHORIZED"
	CategoryInternal     ErrorCategory = "INTERNAL"
	CategoryExternal     ErrorCategory = "EXTERNAL"
)

// Wire codes rendered in the "code" member of the error envelope.
const (
	CodeValidation           = "validation_error"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeAuthenticationFailed = "authentication_failed"
	CodeMethodNotAllowed     = "method_not_allowed"
	CodeRequestTooLarge      = "request_too_large"
	CodeServiceUnavailable   = "service_unavailable"
	CodeInternal             = "internal_error"
)

// NonFieldErrors collects messages that do not belong to a single input field.
const NonFieldErrors = "non_field_errors"

// DomainError carries everything the HTTP layer needs to render a failure.
// Code is the internal, fine-grained code used in logs and metrics; PublicCode
// is what clients see.
type DomainError interface {
	error
	Code() string
	PublicCode() string
	Category() ErrorCategory
	HTTPStatus() int
	Message() string
	Fields() map[string][]string
	Unwrap() error
	WithCause(cause error) DomainError
	WithField(field, message string) DomainError
}

type domainError struct {
	code       string
	publicCode string
	category   ErrorCategory
	status     int
	message    string
	fields     map[string][]string
	cause      error
}

func (e *domainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *domainError) Code() string {
	return e.code
}

func (e *domainError) PublicCode() string {
	return e.publicCode
}

func (e *domainError) Category() ErrorCategory {
	return e.category
}

func (e *domainError) HTTPStatus() int {
	return e.status
}

func (e *domainError) Message() string {
	return e.message
}

func (e *domainError) Fields() map[string][]string {
	if len(e.fields) == 0 {
		return nil
	}
	out := make(map[string][]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (e *domainError) Unwrap() error {
	return e.cause
}

// Is matches any copy derived from the same sentinel via WithCause or WithField.
func (e *domainError) Is(target error) bool {
	t, ok := target.(*domainError)
	if !ok {
		return false
	}
	return e.code == t.code && e.publicCode == t.publicCode
}

func (e *domainError) clone() *domainError {
	c := *e
	if e.fields != nil {
		c.fields = e.Fields()
	}
	return &c
}

func (e *domainError) WithCause(cause error) DomainError {
	c := e.clone()
	c.cause = cause
	return c
}

func (e *domainError) WithField(field, message string) DomainError {
	c := e.clone()
	if c.fields == nil {
		c.fields = make(map[string][]string)
	}
	c.fields[field] = append(c.fields[field], message)
	return c
}

func NewDomainError(code string, category ErrorCategory, status int, message string) DomainError {
	return &domainError{
		code:       code,
		publicCode: publicCodeFor(category, status),
		category:   category,
		status:     status,
		message:    message,
	}
}

// NewPublicDomainError is NewDomainError with an explicit wire code.
func NewPublicDomainError(code, publicCode string, category ErrorCategory, status int, message string) DomainError {
	return &domainError{
		code:       code,
		publicCode: publicCode,
		category:   category,
		status:     status,
		message:    message,
	}
}

func publicCodeFor(category ErrorCategory, status int) string {
	switch {
	case category == CategoryValidation:
		return CodeValidation
	case status == http.StatusUnauthorized:
		return CodeAuthenticationFailed
	case status == http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	default:
		return CodeInternal
	}
}

// NewValidationError builds a validation_error from per-field messages.
func NewValidationError(fields map[string][]string) DomainError {
	err := ErrValidation.(*domainError).clone()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, msg := range fields[k] {
			if err.fields == nil {
				err.fields = make(map[string][]string)
			}
			err.fields[k] = append(err.fields[k], msg)
		}
	}
	return err
}

func IsDomainError(err error) bool {
	var de DomainError
	return errors.As(err, &de)
}

func AsDomainError(err error) (DomainError, bool) {
	var de DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

var (
	ErrMissingRequiredEnv = NewDomainError(
		"MISSING_REQUIRED_ENV",
		CategoryInternal,
		http.StatusInternalServerError,
		"missing required environment variable",
	)

	ErrValidation = NewDomainError(
		"VALIDATION_FAILED",
		CategoryValidation,
		http.StatusBadRequest,
		"invalid input",
	)

	ErrInvalidJSON = NewDomainError(
		"INVALID_JSON",
		CategoryValidation,
		http.StatusBadRequest,
		"malformed request body",
	)

	ErrMethodNotAllowed = NewPublicDomainError(
		"METHOD_NOT_ALLOWED",
		CodeMethodNotAllowed,
		CategoryValidation,
		http.StatusMethodNotAllowed,
		"method not allowed",
	)

	ErrRequestTooLarge = NewPublicDomainError(
		"REQUEST_TOO_LARGE",
		CodeRequestTooLarge,
		CategoryValidation,
		http.StatusRequestEntityTooLarge,
		"request body too large",
	)

	ErrCircuitOpen = NewDomainError(
		"CIRCUIT_OPEN",
		CategoryExternal,
		http.StatusServiceUnavailable,
		"circuit breaker is open",
	)

	ErrRequestTimeout = NewDomainError(
		"REQUEST_TIMEOUT",
		CategoryExternal,
		http.StatusServiceUnavailable,
		"request timed out",
	)

	ErrInternalError = NewDomainError(
		"INTERNAL_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"internal server error",
	)

	ErrDatabaseError = NewDomainError(
		"DATABASE_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"database operation failed",
	)
)
