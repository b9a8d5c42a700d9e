package services

import "errors"

// Error taxonomy shared by all services. Callers classify with errors.Is and the
// HTTP layer maps each class to a status code.
var (
	// ErrNotFound is returned when a group, template, or task does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the acting user lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for bad input: unknown enums, empty rotation
	// order with rotation strategy, assignees that are not group members.
	ErrValidation = errors.New("validation failed")

	// ErrInternal is returned for persistence failures.
	ErrInternal = errors.New("internal error")
)
