// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// Infrastructure errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTimeout          = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "profile", "catalog", "enrollment"
	Op      string // Operation that failed, e.g., "Create", "Complete"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Profile domain errors
var (
	ErrProfileNotFound      = NewDomainError("profile", "Find", ErrNotFound, "profile not found")
	ErrProfileAlreadyExists = NewDomainError("profile", "Create", ErrAlreadyExists, "profile already exists")
	ErrInvalidUserID        = NewDomainError("profile", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidXPAward       = NewDomainError("profile", "AwardXP", ErrValueOutOfRange, "XP award must be at least 1")
)

// Catalog domain errors
var (
	ErrTreeNotFound     = NewDomainError("catalog", "FindTree", ErrNotFound, "skill tree not found")
	ErrNodeNotFound     = NewDomainError("catalog", "FindNode", ErrNotFound, "skill node not found")
	ErrNodeTreeMismatch = NewDomainError("catalog", "Validate", ErrInvalidInput, "node does not belong to tree")
	ErrInvalidTreeID    = NewDomainError("catalog", "Validate", ErrInvalidID, "invalid tree ID")
	ErrInvalidNodeID    = NewDomainError("catalog", "Validate", ErrInvalidID, "invalid node ID")
)

// Enrollment domain errors
var (
	ErrEnrollmentNotFound   = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrAlreadyEnrolled      = NewDomainError("enrollment", "Enroll", ErrAlreadyExists, "user already enrolled in tree")
	ErrNotEnrolled          = NewDomainError("enrollment", "Check", ErrInvalidState, "user is not enrolled in tree")
	ErrNodeAlreadyCompleted = NewDomainError("enrollment", "CompleteNode", ErrAlreadyProcessed, "node already completed")
	ErrNodeLocked           = NewDomainError("enrollment", "CompleteNode", ErrInvalidState, "node is locked")
	ErrProgressNotFound     = NewDomainError("enrollment", "FindProgress", ErrNotFound, "node progress not found")
)

// Achievement domain errors
var (
	ErrAchievementNotFound = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found")
	ErrAlreadyUnlocked     = NewDomainError("achievement", "Unlock", ErrAlreadyExists, "achievement already unlocked")
	ErrInvalidCriteria     = NewDomainError("achievement", "Evaluate", ErrInvalidInput, "invalid achievement criteria")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsConflict checks if the error is a conflict of any kind: a duplicate
// entity or a rejected re-processing of the same action.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrAlreadyProcessed)
}

// IsInvalidState checks if the error is an invalid-state error.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrStateTransition)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrOptimisticLock) ||
		errors.Is(err, ErrConcurrentModification)
}
