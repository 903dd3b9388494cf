package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns on purpose wraps one of them so
// the HTTP layer can map it to a status code in one place.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrUpstream     = errors.New("upstream failure")
)

// ServiceError is a caller-facing failure: Message is safe to return to the client
type ServiceError struct {
	Kind    error
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap exposes the kind to errors.Is
func (e *ServiceError) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError rejects caller input before any state is touched
func NewValidationError(format string, args ...interface{}) *ServiceError {
	return newError(ErrInvalidInput, format, args...)
}

// Well known failures
var (
	ErrClientNotFound    = newError(ErrNotFound, "Client not found.")
	ErrBusinessNotFound  = newError(ErrNotFound, "Business not found.")
	ErrMeetingNotFound   = newError(ErrNotFound, "Meeting not found.")
	ErrManagerNotFound   = newError(ErrNotFound, "Manager not found.")
	ErrPhaseNotFound     = newError(ErrNotFound, "Phase not found.")
	ErrItemNotFound      = newError(ErrNotFound, "Item not found.")
	ErrAccountNotFound   = newError(ErrNotFound, "StoryBrand account not found")
	ErrInvalidMeetingID  = newError(ErrInvalidInput, "The provided meeting ID is not valid.")
	ErrInvalidBusinessID = newError(ErrInvalidInput, "The provided business ID is not valid.")
	ErrInvalidClientID   = newError(ErrInvalidInput, "The provided client ID is not valid.")

	ErrMeetingAlreadyAssigned = newError(ErrConflict, "This meeting is already assigned to a client.")
	ErrBusinessNotOwned       = newError(ErrConflict, "Assignment error: This business does not belong to the selected client.")
	ErrHandoffExists          = newError(ErrConflict, "A handoff already exists for this business.")
	ErrAccountExists          = newError(ErrConflict, "This client already has a StoryBrand account")
	ErrPhaseIncomplete        = newError(ErrInvalidInput, "The current phase must be completed before advancing.")
	ErrLastPhase              = newError(ErrInvalidInput, "The checklist is already in its last phase.")

	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid email or password")
	ErrInvalidRefresh     = newError(ErrUnauthorized, "invalid refresh token")
	ErrAccountInactive    = newError(ErrForbidden, "account is inactive")
)
