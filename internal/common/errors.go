package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrUserMismatch   = errors.New("user does not own this store")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrShareUnavailable is the single outcome of resolving a share that does
	// not exist, has expired, or points at a soft-deleted note.
	ErrShareUnavailable = errors.New("share unavailable")

	// ErrDuplicateTag is wrapped by a ValidationError when a tag name is taken.
	ErrDuplicateTag = errors.New("tag name already exists")
)
