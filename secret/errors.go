package secret

import "errors"

var (
	// ErrMissingEnv indicates ${VAR} referenced an unset environment variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrUnknownProvider indicates a reference named an unregistered provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrNotFound indicates a provider has no value for a reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmptySecret indicates a strict resolver received an empty value.
	ErrEmptySecret = errors.New("secret: provider returned empty value")

	// ErrInvalidRef indicates a malformed reference or provider registration.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
