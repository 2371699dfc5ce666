package review

import "errors"

var (
	// ErrUnauthorized: no identity, or the identity lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden: the principal is known but the voting gate denies it.
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
	// ErrInvalidReference: a write names a strategy that does not exist.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrConflict is reserved for stores with strict create/update
	// separation. Upserting stores never return it.
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)
