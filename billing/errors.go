/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The api layer maps these onto HTTP statuses via the helper predicates.

ERROR CATEGORIES:
  1. Validation errors - rejected before any mutation is attempted
  2. Not-found errors  - target deleted by a prior operation; no-op
  3. Storage errors    - propagated from the store; no partial batch applied
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrContractNotFound is returned when a referenced contract doesn't exist.
	ErrContractNotFound = errors.New("contract not found")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrBookingNotFound is returned when a referenced booking doesn't exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrUnitNotFound is returned when a referenced unit doesn't exist.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrSettingsNotFound is returned when the settings singleton has not
	// been seeded yet.
	ErrSettingsNotFound = errors.New("settings not found")

	// ErrInvalidDateRange is returned when an end date precedes a start date.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrBatchFailed is returned when an atomic store batch could not be
	// applied. The store guarantees nothing was written.
	ErrBatchFailed = errors.New("batch write failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError rejects an operation before any mutation is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrUnitNotFound) ||
		errors.Is(err, ErrSettingsNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidDateRange)
}
