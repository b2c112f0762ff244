package domain

import "errors"

// Workflow error taxonomy. Callers wrap these with context and match with errors.Is.
var (
	ErrInvalidReference   = errors.New("invalid reference")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
)
