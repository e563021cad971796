package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks data that was fetched fine but cannot be turned into a record.
	// Crawls skip such tokens instead of aborting.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyTokenURI is returned when tokenURI() answers with an empty string
	ErrEmptyTokenURI = fmt.Errorf("%w: empty token uri", ErrValidation)

	// ErrNonStringTokenURI is returned when tokenURI() output does not decode as a string
	ErrNonStringTokenURI = fmt.Errorf("%w: token uri is not a string", ErrValidation)

	// ErrInvalidMetadata is returned when token metadata is not a JSON object
	ErrInvalidMetadata = fmt.Errorf("%w: invalid token metadata", ErrValidation)

	// ErrUnsupportedURI is returned for URI schemes the resolver does not know
	ErrUnsupportedURI = fmt.Errorf("%w: unsupported uri", ErrValidation)

	// ErrRecordNotFound is returned when a record lookup misses
	ErrRecordNotFound = errors.New("record not found")
)

// IsValidation reports whether err belongs to the validation family
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
