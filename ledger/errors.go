/*
errors.go - Centralized error types for the ledger engine

ERROR CATEGORIES:
  1. NotFound   - referenced client/beer/movement does not exist
  2. InvalidInput - non-positive quantity, unknown movement type, bad date
  3. Conflict   - duplicate name on client/beer creation, blocked deletion

Store failures are wrapped with fmt.Errorf and propagate untyped; callers
map anything unclassified to a generic failure.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrClientNotFound is returned when a referenced client doesn't exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrBeerNotFound is returned when a referenced beer doesn't exist.
	ErrBeerNotFound = errors.New("beer not found")

	// ErrMovementNotFound is returned when a movement id doesn't resolve.
	ErrMovementNotFound = errors.New("movement not found")

	// ErrInvalidQuantity is returned when quantity is zero or negative.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrInvalidMovementType is returned for an unrecognized movement type.
	ErrInvalidMovementType = errors.New("invalid movement type")

	// ErrInvalidDate is returned for a malformed or missing business date.
	// Malformed dates are rejected, not silently replaced with today.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidAmount is returned for a negative catalog price or deposit.
	ErrInvalidAmount = errors.New("amount must not be negative")

	// ErrNameRequired is returned when a client or beer name is blank.
	ErrNameRequired = errors.New("name is required")

	// ErrDuplicateName is returned when a client or beer name already exists.
	ErrDuplicateName = errors.New("name already exists")

	// ErrClientHasMovements is returned when deleting a client that is still
	// referenced by ledger rows. Cascading would rewrite history.
	ErrClientHasMovements = errors.New("client has movements")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which record failed to resolve.
type NotFoundError struct {
	Kind string // "client", "beer", "movement"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	switch e.Kind {
	case "client":
		return ErrClientNotFound
	case "beer":
		return ErrBeerNotFound
	default:
		return ErrMovementNotFound
	}
}

// ConflictError identifies a uniqueness or deletion conflict.
type ConflictError struct {
	Kind   string // "client", "beer"
	Name   string
	Reason error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, e.Reason)
}

func (e *ConflictError) Unwrap() error { return e.Reason }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrBeerNotFound) ||
		errors.Is(err, ErrMovementNotFound)
}

// IsInvalidInput returns true if the error is due to invalid caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidMovementType) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNameRequired)
}

// IsConflict returns true if the error is a uniqueness or deletion conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrClientHasMovements)
}
