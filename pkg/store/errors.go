package store

import "errors"

// Common store errors
var (
	// ErrKeyNotFound is returned when a key is not found in the store
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreClosed is returned by operations on a closed store
	ErrStoreClosed = errors.New("store closed")

	// ErrStoreConnectionFailed is returned when connection to store fails
	ErrStoreConnectionFailed = errors.New("store connection failed")

	// ErrInvalidKey is returned when an invalid key is provided
	ErrInvalidKey = errors.New("invalid key")

	// ErrUnsupportedType is returned by the factory for unknown store types
	ErrUnsupportedType = errors.New("unsupported store type")
)

// IsKeyNotFoundError checks if the error is a key not found error
func IsKeyNotFoundError(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsConnectionError checks if the error is a connection error
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrStoreConnectionFailed)
}
