package shared

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure class across subsystem boundaries. The RPC
// frontend returns the code verbatim to callers; the container supervisor
// uses it to decide between restart and terminal failure.
type ErrorCode string

const (
	// Request validation
	ErrMalformedRequest ErrorCode = "MalformedRequest"
	ErrInvalidParams    ErrorCode = "InvalidParams"
	ErrUnknownMethod    ErrorCode = "UnknownMethod"

	// Entity lookup
	ErrPlayerNotFound    ErrorCode = "PlayerNotFound"
	ErrShipNotFound      ErrorCode = "ShipNotFound"
	ErrShipyardNotFound  ErrorCode = "ShipyardNotFound"
	ErrNoShipyardFound   ErrorCode = "NoShipyardFound"
	ErrWaypointNotFound  ErrorCode = "WaypointNotFound"
	ErrContractNotFound  ErrorCode = "ContractNotFound"
	ErrContainerNotFound ErrorCode = "ContainerNotFound"

	// Preconditions
	ErrShipNotDocked          ErrorCode = "ShipNotDocked"
	ErrShipNotInOrbit         ErrorCode = "ShipNotInOrbit"
	ErrShipAlreadyAssigned    ErrorCode = "ShipAlreadyAssigned"
	ErrInsufficientCredits    ErrorCode = "InsufficientCredits"
	ErrInsufficientCargoSpace ErrorCode = "InsufficientCargoSpace"
	ErrShipTypeNotAvailable   ErrorCode = "ShipTypeNotAvailable"

	// Routing
	ErrNoRouteFound          ErrorCode = "NoRouteFound"
	ErrEmptyWaypointCache    ErrorCode = "EmptyWaypointCache"
	ErrRouteHasNoTravelSteps ErrorCode = "RouteHasNoTravelSteps"

	// Remote API
	ErrCircuitOpen          ErrorCode = "CircuitOpen"
	ErrRateLimitedExhausted ErrorCode = "RateLimitedExhausted"
	ErrRemoteUnavailable    ErrorCode = "RemoteUnavailable"
	ErrMaxRetriesExceeded   ErrorCode = "MaxRetriesExceeded"
	ErrHTTP4xx              ErrorCode = "Http4xx"
	ErrHTTP5xx              ErrorCode = "Http5xx"

	// Concurrency
	ErrOperationCanceled ErrorCode = "OperationCanceled"
	ErrTimeout           ErrorCode = "Timeout"

	// Anything not classified above
	ErrInternal ErrorCode = "Internal"
)

// DomainError carries a stable code alongside a human-readable message.
// It wraps an optional cause so errors.Is/As keep working through it.
type DomainError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int // set for Http4xx/Http5xx codes
	cause      error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// NewDomainError creates a DomainError with a code and message.
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorf creates a DomainError with a formatted message.
func NewDomainErrorf(code ErrorCode, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapDomainError attaches a code and message to an underlying cause.
func WrapDomainError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{Code: code, Message: message, cause: cause}
}

// NewHTTPError classifies a raw HTTP status into Http4xx/Http5xx.
func NewHTTPError(status int, message string) *DomainError {
	code := ErrHTTP5xx
	if status >= 400 && status < 500 {
		code = ErrHTTP4xx
	}
	return &DomainError{Code: code, Message: message, HTTPStatus: status}
}

// CodeOf extracts the error code from err's chain, or ErrInternal when the
// chain carries no DomainError.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	if errors.Is(err, ErrCanceled) {
		return ErrOperationCanceled
	}
	return ErrInternal
}

// IsCode reports whether err's chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ErrCanceled is a sentinel matched by CodeOf for bare cancellations.
var ErrCanceled = errors.New("operation canceled")

// IsTransient reports whether the supervisor should restart a container that
// failed with err. Validation and precondition failures are terminal; remote
// hiccups, rate-limit exhaustion, and timeouts are retryable.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case ErrHTTP5xx, ErrRemoteUnavailable, ErrRateLimitedExhausted, ErrMaxRetriesExceeded, ErrTimeout:
		return true
	default:
		return false
	}
}

// ValidationError is a field-level validation failure. It is an
// InvalidParams at the RPC boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientFuelError surfaces planning-time fuel shortfalls with both
// quantities, so workflows can translate it into NoRouteFound with a hint.
type InsufficientFuelError struct {
	Required  int
	Available int
}

func (e *InsufficientFuelError) Error() string {
	return fmt.Sprintf("insufficient fuel: need %d, have %d", e.Required, e.Available)
}

func NewInsufficientFuelError(required, available int) *InsufficientFuelError {
	return &InsufficientFuelError{Required: required, Available: available}
}
