package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates caller supplied data rejected at the boundary.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the caller role may not perform the action.
	ErrForbidden = errors.New("forbidden")
)
