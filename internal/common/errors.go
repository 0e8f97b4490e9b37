package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorTooLarge     = errors.New("payload too large")

	// Entity store errors.
	ErrInvalidParent = errors.New("invalid parent")
	ErrInvalidField  = errors.New("invalid field")
	ErrInvalidKind   = errors.New("invalid item kind")

	// Sync errors. Callers match them with errors.Is.
	ErrDriverUnavailable  = errors.New("remote driver unavailable")
	ErrMalformedSnapshot  = errors.New("malformed snapshot")
	ErrConflictingSchema  = errors.New("conflicting schema")
	ErrJournalCorruption  = errors.New("journal corruption")
	ErrUnknownDriver      = errors.New("unknown driver type")
	ErrDriverNotConnected = errors.New("remote is not connected")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
