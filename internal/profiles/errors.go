package profiles

import "errors"

var (
	// ErrNotFound indicates the profile does not exist for the user.
	ErrNotFound = errors.New("profile not found")
	// ErrInvalidInput indicates missing identifiers.
	ErrInvalidInput = errors.New("invalid input")
)
