package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Resolution errors
const (
	// ErrCodeServiceNotFound indicates a service could not be built or located.
	ErrCodeServiceNotFound ErrorCode = "SERVICE_NOT_FOUND"
	// ErrCodeSyntheticService indicates a synthetic service was requested before a value was supplied.
	ErrCodeSyntheticService ErrorCode = "SYNTHETIC_SERVICE"
	// ErrCodeCircularReference indicates a service depends on itself.
	ErrCodeCircularReference ErrorCode = "CIRCULAR_REFERENCE"
)

// Configuration errors
const (
	// ErrCodeInvalidConfiguration indicates the dependency map is inconsistent.
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	// ErrCodeContainerFrozen indicates a registration was attempted on a compiled container.
	ErrCodeContainerFrozen ErrorCode = "CONTAINER_FROZEN"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Standard detail keys.
const (
	DetailService = "service"
	DetailLayer   = "layer"
	DetailSpec    = "spec"
	DetailPath    = "path"
)
