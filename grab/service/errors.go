package service

import (
	"errors"
	"fmt"
)

// Common module errors that can be checked with errors.Is.
var (
	// ErrNotFound is returned when a track, artist, album, or playlist is not found.
	ErrNotFound = errors.New("service: resource not found")

	// ErrRateLimited is returned when the service API rate limit is hit.
	ErrRateLimited = errors.New("service: rate limit exceeded")

	// ErrUnavailable is returned when content is permanently not retrievable
	// in the current region or account context.
	ErrUnavailable = errors.New("service: content unavailable")

	// ErrUnsupported is returned when a feature is not supported by the module.
	ErrUnsupported = errors.New("service: feature not supported")

	// ErrInvalidQuality is returned when the requested audio quality is not available.
	ErrInvalidQuality = errors.New("service: invalid quality")

	// ErrAuthRequired is returned when authentication is required but not provided.
	ErrAuthRequired = errors.New("service: authentication required")
)

// ModuleError wraps an error with context about which module and resource
// produced it. The underlying error stays reachable through errors.Is/As.
type ModuleError struct {
	// Module is the name of the service module that returned the error.
	Module string

	// Resource is the type of resource that was being accessed
	// (e.g. "track", "album", "cover").
	Resource string

	// ID is the identifier of the resource (if applicable).
	ID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ModuleError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Module, e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Module, e.Resource, e.Err)
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *ModuleError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a ModuleError for a resource that was not found.
func NewNotFoundError(module, resource, id string) error {
	return &ModuleError{Module: module, Resource: resource, ID: id, Err: ErrNotFound}
}

// NewRateLimitedError creates a ModuleError for rate limit errors.
func NewRateLimitedError(module string) error {
	return &ModuleError{Module: module, Resource: "api", Err: ErrRateLimited}
}

// NewUnavailableError creates a ModuleError for unavailable content.
func NewUnavailableError(module, resource, id string) error {
	return &ModuleError{Module: module, Resource: resource, ID: id, Err: ErrUnavailable}
}

// NewUnsupportedError creates a ModuleError for unsupported features.
func NewUnsupportedError(module, feature string) error {
	return &ModuleError{Module: module, Resource: feature, Err: ErrUnsupported}
}

// NewInvalidQualityError creates a ModuleError for invalid quality requests.
func NewInvalidQualityError(module, trackID string, quality Quality) error {
	return &ModuleError{
		Module:   module,
		Resource: "track",
		ID:       trackID,
		Err:      fmt.Errorf("%w: %s", ErrInvalidQuality, quality.String()),
	}
}

// NewAuthRequiredError creates a ModuleError for authentication errors.
func NewAuthRequiredError(module string) error {
	return &ModuleError{Module: module, Resource: "api", Err: ErrAuthRequired}
}

// ErrorKind is the retrieval-policy classification of a module error.
type ErrorKind int

const (
	// KindTransient errors consume a retry attempt.
	KindTransient ErrorKind = iota

	// KindRateLimit errors stop retrying immediately; the track may be
	// deferred for a later pass.
	KindRateLimit

	// KindUnavailable errors are permanent for this track.
	KindUnavailable
)

// String returns the string representation of the ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "transient"
	}
}

// Classify maps any error a module returned into the retrieval policy kinds.
// Unrecognized errors are transient: they consume attempts until exhausted.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrRateLimited):
		return KindRateLimit
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrNotFound):
		return KindUnavailable
	default:
		return KindTransient
	}
}
