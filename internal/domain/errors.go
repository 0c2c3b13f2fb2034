package domain

import "errors"

var (
	// ErrInvalidTransition is returned when an item status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrItemNotFound is returned when an item is not found
	ErrItemNotFound = errors.New("item not found")

	// ErrItemExists is returned when appending an item whose key is already present
	ErrItemExists = errors.New("item already exists")

	// ErrMissingCredentials is returned when an external service credential is not configured
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrInvalidWeights is returned when scoring weights do not form a valid distribution
	ErrInvalidWeights = errors.New("invalid scoring weights")
)
