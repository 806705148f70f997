package common

import (
	"errors"
	"log"
	"strings"
	"summit/src/config"
	"summit/src/models"
	"summit/src/types"
	"time"
)

// ClaimLifecycle owns the pending/verified/expired/cancelled state machine.
// Matching failures are never fatal to a request: the claim stays pending
// and is retried on the next poll or sweep.
type ClaimLifecycle struct {
	store   Store
	matcher *Matcher
	now     Clock
}

func NewClaimLifecycle(store Store, now Clock) *ClaimLifecycle {
	if now == nil {
		now = time.Now
	}
	return &ClaimLifecycle{
		store:   store,
		matcher: NewMatcher(store, now),
		now:     now,
	}
}

// Submit validates and persists a new claim, then tries one synchronous
// match so a claim that is resolvable right away comes back verified.
// A duplicate pending claim for the same user and booking reference is
// returned unchanged instead of creating a second one. A user who already
// holds an active pass may still claim that same pass (it verifies with
// ownership unchanged); only claims pointing anywhere else are rejected.
func (l *ClaimLifecycle) Submit(userID uint, email string, body *types.SubmitClaimRequestBody) (*models.PendingClaim, error) {
	active, err := l.store.FindActivePass(userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	claim := &models.PendingClaim{
		UserID:      userID,
		BookingRef:  strings.TrimSpace(body.BookingRef),
		OrderRef:    strings.TrimSpace(body.OrderRef),
		TicketNo:    strings.TrimSpace(body.TicketNo),
		QRPayload:   strings.TrimSpace(body.QRPayload),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DocumentURL: body.DocumentURL,
	}
	if !claim.HasIdentifier() {
		return nil, ErrMissingIdentifier
	}

	if active != nil {
		candidate, err := l.matcher.findCandidate(claim)
		if err != nil {
			return nil, err
		}
		if candidate == nil || candidate.ID != active.ID {
			return nil, ErrAlreadyHasPass
		}
	}

	if claim.BookingRef != "" {
		existing, err := l.store.FindPendingClaimByBookingRef(userID, claim.BookingRef)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	now := l.now()
	claim.Status = types.CLAIM_PENDING
	claim.ExpiresAt = now.Add(config.ClaimTTL)
	if err := l.store.CreateClaim(claim); err != nil {
		if isUniqueViolation(err) {
			// Lost the duplicate-submission race; hand back the winner.
			return l.store.FindPendingClaimByBookingRef(userID, claim.BookingRef)
		}
		return nil, err
	}

	l.tryMatch(claim)
	return claim, nil
}

// GetStatus returns the claim, expiring it lazily when the deadline has
// passed and otherwise re-running the matcher once. Terminal claims are
// returned as-is; re-reading a verified claim never re-transfers anything.
func (l *ClaimLifecycle) GetStatus(claimID uint) (*models.PendingClaim, error) {
	claim, err := l.store.FindClaim(claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != types.CLAIM_PENDING {
		return claim, nil
	}
	if l.now().After(claim.ExpiresAt) {
		if err := l.store.UpdateClaimStatus(claim.ID, types.CLAIM_PENDING, types.CLAIM_EXPIRED); err != nil {
			return nil, err
		}
		claim.Status = types.CLAIM_EXPIRED
		return claim, nil
	}
	l.tryMatch(claim)
	return claim, nil
}

// Cancel withdraws a pending claim. Only the owner may cancel, and only
// while the claim is still pending; a cancelled claim is never matchable
// again.
func (l *ClaimLifecycle) Cancel(claimID, requestingUserID uint) error {
	claim, err := l.store.FindClaim(claimID)
	if err != nil {
		return err
	}
	if claim.UserID != requestingUserID {
		return ErrForbidden
	}
	if claim.Status != types.CLAIM_PENDING {
		return ErrInvalidState
	}
	return l.store.UpdateClaimStatus(claim.ID, types.CLAIM_PENDING, types.CLAIM_CANCELLED)
}

// SweepExpired advances every pending claim past its deadline to expired.
// The sweep and concurrent status reads compute the same target state, so
// overlap is a no-op.
func (l *ClaimLifecycle) SweepExpired() (int64, error) {
	count, err := l.store.SweepExpiredClaims(l.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("[sweep] expired %d stale pending claims\n", count)
	}
	return count, nil
}

// tryMatch runs one matching attempt and folds transient failures into
// "still pending". It mutates the claim in place on success.
func (l *ClaimLifecycle) tryMatch(claim *models.PendingClaim) {
	result, err := l.matcher.Match(claim)
	if err != nil {
		log.Printf("Error matching claim [%d], leaving pending: %s\n", claim.ID, err.Error())
		return
	}
	if result.Verified {
		at := l.now()
		claim.Status = types.CLAIM_VERIFIED
		claim.VerifiedAt = &at
		claim.PassID = &result.Pass.ID
		claim.Pass = result.Pass
	}
}
