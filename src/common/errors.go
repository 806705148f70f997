package common

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrAlreadyHasPass rejects claim submission while the user still holds
	// an active pass.
	ErrAlreadyHasPass = errors.New("you already have an active pass: only one pass per attendee")
	// ErrMissingIdentifier rejects a claim carrying none of the four
	// booking identifiers.
	ErrMissingIdentifier = errors.New("at least one booking identifier is required")
	ErrNotFound          = errors.New("record not found")
	ErrForbidden         = errors.New("you do not own this record")
	// ErrInvalidState rejects transitions out of a terminal claim state.
	ErrInvalidState = errors.New("claim is no longer pending")
	// ErrInvalidUpgrade rejects a non-ascending or unknown tier pairing.
	ErrInvalidUpgrade = errors.New("upgrade target must be a higher tier than the current one")
	// ErrPaymentIncomplete rejects completion against a reference whose
	// payment has not settled.
	ErrPaymentIncomplete = errors.New("payment has not completed")
	// ErrPaymentMismatch rejects a reference that paid for a different
	// pass, tier or kind of charge than the one being completed.
	ErrPaymentMismatch = errors.New("payment reference does not match this upgrade")
	// ErrPaymentConsumed rejects a reference already linked to an applied
	// upgrade record.
	ErrPaymentConsumed = errors.New("payment reference has already been applied")
)

// isUniqueViolation detects a unique-constraint failure from the backing
// store so create-or-find races can re-fetch the winning row instead of
// surfacing the constraint error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "SQLSTATE 23505")
}
