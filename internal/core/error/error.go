package errx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// NetworkErrorMessage describes transient transport failures; the caller
	// may retry the same turn.
	NetworkErrorMessage = "network request failed"
	// TimeoutErrorMessage describes a bounded-wait violation. Recovery is the
	// same as for network failures but the two stay distinguishable.
	TimeoutErrorMessage = "operation timed out"
	// MalformedArgumentsMessage describes a tool call whose arguments failed
	// the registry contract. Reported back to the model, never fatal.
	MalformedArgumentsMessage = "malformed function arguments"
	// UpstreamSearchMessage describes a search pipeline step failure.
	UpstreamSearchMessage = "upstream search failure"
	// ValidationErrorMessage describes a business-rule rejection.
	ValidationErrorMessage = "validation failed"
)

// Kind classifies an AppError into the failure taxonomy the engine and the
// dispatcher react to.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindTimeout
	KindMalformedArguments
	KindUpstreamSearch
	KindValidation
	KindNotFound
	KindStorage
)

// AppError wraps an underlying error with a kind, an HTTP-ish status and a
// safe user-facing message.
type AppError struct {
	Err     error
	Kind    Kind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// NewKind creates an AppError tagged with a taxonomy kind.
func NewKind(err error, kind Kind, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

// WrapNetwork tags a transient transport failure.
func WrapNetwork(err error) *AppError {
	if err == nil {
		return nil
	}
	return NewKind(err, KindNetwork, http.StatusBadGateway, NetworkErrorMessage)
}

// WrapTimeout tags a bounded-wait violation. Context deadline errors from
// external calls are routed through here so a stuck step surfaces as a
// distinct timeout rather than a generic failure.
func WrapTimeout(err error) *AppError {
	if err == nil {
		return nil
	}
	return NewKind(err, KindTimeout, http.StatusGatewayTimeout, TimeoutErrorMessage)
}

// WrapExternal classifies an error coming back from a model or collaborator
// call: deadline violations become timeouts, everything else a network error.
func WrapExternal(err error) *AppError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapTimeout(err)
	}
	return WrapNetwork(err)
}

// MalformedArguments tags a dispatcher-local argument contract violation.
func MalformedArguments(err error) *AppError {
	if err == nil {
		return nil
	}
	return NewKind(err, KindMalformedArguments, http.StatusBadRequest, MalformedArgumentsMessage)
}

// WrapSearch tags a search pipeline step failure.
func WrapSearch(err error) *AppError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapTimeout(err)
	}
	return NewKind(err, KindUpstreamSearch, http.StatusBadGateway, UpstreamSearchMessage)
}

// Validation tags a business-rule rejection with a caller-facing reason.
func Validation(reason string) *AppError {
	return NewKind(errors.New(reason), KindValidation, http.StatusUnprocessableEntity, ValidationErrorMessage)
}

// KindOf extracts the taxonomy kind from an error chain.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsTimeout reports whether the error chain represents a timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout || errors.Is(err, context.DeadlineExceeded)
}

// IsValidation reports whether the error chain represents a business-rule rejection.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
