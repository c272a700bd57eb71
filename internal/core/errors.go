package core

import (
	"errors"
	"fmt"

	"casefile/pkg/domain"
)

// ErrNoActor is returned when an operation requires an acting user but the
// context carries none.
var ErrNoActor = errors.New("no acting user in context")

// ErrInvalidCredentials is returned by Authenticate for unknown accounts,
// wrong passwords, and deactivated users alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrNotFound indicates a missing entity for lookup operations.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// PermissionError indicates the acting user lacks a required permission or
// is scoped away from the target record.
type PermissionError struct {
	Actor      string
	Permission domain.Permission
}

func (e PermissionError) Error() string {
	return fmt.Sprintf("actor %s lacks permission %s", e.Actor, e.Permission)
}

// ValidationError reports rejected operation input before any transaction
// runs. Field names the offending input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
