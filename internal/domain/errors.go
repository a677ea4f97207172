package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryNotFound is returned when no canonical entry matches a lookup
	ErrEntryNotFound = errors.New("catalog entry not found")

	// ErrDuplicateKey is returned by a store when an insert violates the
	// (name, distillery, variant) uniqueness constraint
	ErrDuplicateKey = errors.New("catalog entry already exists for key")

	// ErrStoreUnavailable wraps any catalog store failure that is not a lookup miss or conflict
	ErrStoreUnavailable = errors.New("catalog store unavailable")

	// ErrFeedFailure is returned when the external product feed request fails
	ErrFeedFailure = errors.New("external feed request failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnresolvableKey is returned for rows or records without a usable identity key
	ErrUnresolvableKey = errors.New("no usable identity key")
)

// Error kinds reported by ErrorKind.
const (
	KindValidation     = "validation"
	KindUnresolvable   = "unresolvable_key"
	KindInfrastructure = "infrastructure"
)

// ErrorClassifier lets errors declare how a batch should treat them.
type ErrorClassifier interface {
	ErrorKind() string
}

// ValidationError reports a descriptor that cannot be turned into a canonical entry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrorKind implements ErrorClassifier.
func (e *ValidationError) ErrorKind() string { return KindValidation }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Kind classifies err. Errors that are neither classified nor wrap a known
// row-scoped sentinel are treated as infrastructure failures.
func Kind(err error) string {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	switch {
	case errors.Is(err, ErrUnresolvableKey):
		return KindUnresolvable
	case errors.Is(err, ErrInvalidRequest):
		return KindValidation
	}
	return KindInfrastructure
}

// IsInfrastructure reports whether err should abort a whole batch.
func IsInfrastructure(err error) bool {
	return err != nil && Kind(err) == KindInfrastructure
}
