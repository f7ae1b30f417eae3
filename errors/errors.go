package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// --- Common Error Constructors ---

// ServiceNotFound creates an AppError for a service that could not be built.
// The cause may be nil.
func ServiceNotFound(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeServiceNotFound, Message: message, Cause: cause}
}

// InvalidConfiguration creates an AppError for an inconsistent dependency map.
func InvalidConfiguration(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidConfiguration, Message: message}
}

// SyntheticService creates an AppError for a synthetic service that has no value yet.
func SyntheticService(name string) *AppError {
	return &AppError{
		Code: ErrCodeSyntheticService,
		Message: fmt.Sprintf("You have requested a synthetic service (%q). "+
			"The container does not know how to construct this service.", name),
		Details: map[string]any{DetailService: name},
	}
}

// CircularReference creates an AppError for a dependency cycle. path lists the
// services in resolution order, ending with the repeated one.
func CircularReference(path []string) *AppError {
	service := ""
	if len(path) > 0 {
		service = path[len(path)-1]
	}
	return &AppError{
		Code:    ErrCodeCircularReference,
		Message: fmt.Sprintf("Circular reference detected for service %q, path: %q.", service, strings.Join(path, " -> ")),
		Details: map[string]any{DetailService: service, DetailPath: path},
	}
}

// ContainerFrozen creates an AppError for a registration on a compiled container.
func ContainerFrozen(name string) *AppError {
	return &AppError{
		Code:    ErrCodeContainerFrozen,
		Message: fmt.Sprintf("cannot register service %q on a compiled container", name),
		Details: map[string]any{DetailService: name},
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.", Cause: cause,
	}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether the outermost AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsServiceNotFound reports whether err is a SERVICE_NOT_FOUND failure.
func IsServiceNotFound(err error) bool {
	return HasCode(err, ErrCodeServiceNotFound)
}

// IsInvalidConfiguration reports whether err is an INVALID_CONFIGURATION failure.
func IsInvalidConfiguration(err error) bool {
	return HasCode(err, ErrCodeInvalidConfiguration)
}
