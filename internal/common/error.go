// Package common defines shared constants and sentinel errors used across
// the server layers of TypicalTools. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors. Field-specific messages wrap ErrValidation.
	ErrValidation    = errors.New("validation error")
	ErrUsernameTaken = errors.New("username already exists")
	ErrInvalidName   = errors.New("invalid file name")

	// Authorization outcomes.
	ErrForbidden         = errors.New("forbidden")
	ErrModerationExpired = errors.New("moderation window expired")

	// Crypto errors.
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrDecryption     = errors.New("decryption failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
