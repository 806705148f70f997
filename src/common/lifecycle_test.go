package common

import (
	"errors"
	"summit/src/config"
	"summit/src/models"
	"summit/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitResolvableClaimVerifiesImmediately(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})
	pass := store.addPass(models.Pass{UserID: user.ID, Tier: "pixel", BookingRef: "BK123"})

	l := NewClaimLifecycle(store, nil)
	claim, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK123"})

	require.NoError(t, err)
	assert.Equal(t, types.CLAIM_VERIFIED, claim.Status)
	require.NotNil(t, claim.PassID)
	assert.Equal(t, pass.ID, *claim.PassID)
	assert.NotNil(t, claim.VerifiedAt)
}

func TestSubmitOwnActivePassClaimKeepsOwnership(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})
	pass := store.addPass(models.Pass{UserID: user.ID, Tier: "silicon", BookingRef: "BK321"})

	// holding an active pass does not block claiming that very pass
	l := NewClaimLifecycle(store, nil)
	claim, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK321"})

	require.NoError(t, err)
	assert.Equal(t, types.CLAIM_VERIFIED, claim.Status)
	require.NotNil(t, claim.PassID)
	assert.Equal(t, pass.ID, *claim.PassID)
	assert.Equal(t, user.ID, store.passes[pass.ID].UserID)
}

func TestSubmitUnresolvableClaimStaysPending(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})

	cur := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	l := NewClaimLifecycle(store, func() time.Time { return cur })
	claim, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "UNKNOWN"})

	assert.NoError(t, err)
	assert.Equal(t, types.CLAIM_PENDING, claim.Status)
	assert.Equal(t, cur.Add(config.ClaimTTL), claim.ExpiresAt)
}

func TestSubmitRejectsSecondActivePass(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})
	other := store.addUser(models.User{Email: "b@y.com"})
	store.addPass(models.Pass{UserID: user.ID, Tier: "pixel", BookingRef: "BK1"})
	store.addPass(models.Pass{UserID: other.ID, Tier: "pixel", BookingRef: "BK2"})

	l := NewClaimLifecycle(store, nil)

	// an identifier the system cannot resolve
	_, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK99"})
	assert.ErrorIs(t, err, ErrAlreadyHasPass)

	// an identifier resolving to someone else's pass
	_, err = l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK2"})
	assert.ErrorIs(t, err, ErrAlreadyHasPass)
}

func TestSubmitRequiresAnIdentifier(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})

	l := NewClaimLifecycle(store, nil)
	_, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{Email: "a@x.com"})

	assert.ErrorIs(t, err, ErrMissingIdentifier)
}

func TestSubmitDeduplicatesPendingClaims(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})

	l := NewClaimLifecycle(store, nil)
	first, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK42"})
	assert.NoError(t, err)

	second, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK42"})
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.claims, 1)
}

func TestGetStatusExpiresLazily(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})

	cur := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	l := NewClaimLifecycle(store, func() time.Time { return cur })
	claim, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "UNKNOWN"})
	assert.NoError(t, err)

	// inside the window the claim keeps waiting
	cur = cur.Add(config.ClaimTTL - time.Minute)
	got, err := l.GetStatus(claim.ID)
	assert.NoError(t, err)
	assert.Equal(t, types.CLAIM_PENDING, got.Status)

	// one second past the deadline it expires on read
	cur = cur.Add(time.Minute + time.Second)
	got, err = l.GetStatus(claim.ID)
	assert.NoError(t, err)
	assert.Equal(t, types.CLAIM_EXPIRED, got.Status)

	// expired is terminal even when a matching pass appears later
	store.addPass(models.Pass{UserID: user.ID, Tier: "pixel", BookingRef: "UNKNOWN", Status: types.PASS_CANCELLED})
	got, err = l.GetStatus(claim.ID)
	assert.NoError(t, err)
	assert.Equal(t, types.CLAIM_EXPIRED, got.Status)
}

func TestGetStatusRetriesMatchWhilePending(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})

	cur := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	l := NewClaimLifecycle(store, func() time.Time { return cur })
	claim, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK900"})
	assert.NoError(t, err)
	assert.Equal(t, types.CLAIM_PENDING, claim.Status)

	// the pass record lands after submission, before expiry
	store.addPass(models.Pass{UserID: user.ID, Tier: "silicon", BookingRef: "BK900"})
	cur = cur.Add(time.Hour)
	got, err := l.GetStatus(claim.ID)
	assert.NoError(t, err)
	assert.Equal(t, types.CLAIM_VERIFIED, got.Status)
}

func TestGetStatusVerifiedClaimIsStable(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})
	store.addPass(models.Pass{UserID: user.ID, Tier: "pixel", BookingRef: "BK5"})

	cur := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	l := NewClaimLifecycle(store, func() time.Time { return cur })
	claim, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK5"})
	assert.NoError(t, err)
	assert.Equal(t, types.CLAIM_VERIFIED, claim.Status)

	// long past the original TTL a verified claim never flips to expired
	cur = cur.Add(10 * config.ClaimTTL)
	got, err := l.GetStatus(claim.ID)
	assert.NoError(t, err)
	assert.Equal(t, types.CLAIM_VERIFIED, got.Status)
}

func TestSubmitSurvivesTransientMatcherFailure(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})
	store.addPass(models.Pass{UserID: user.ID, Tier: "pixel", BookingRef: "BK1", Status: types.PASS_REFUNDED})
	store.failures["FindPassByBookingRef"] = errors.New("connection reset")

	l := NewClaimLifecycle(store, nil)
	claim, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK1"})

	assert.NoError(t, err)
	assert.Equal(t, types.CLAIM_PENDING, claim.Status)
}

func TestCancelOwnPendingClaim(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})

	l := NewClaimLifecycle(store, nil)
	claim, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK1"})
	assert.NoError(t, err)

	assert.NoError(t, l.Cancel(claim.ID, user.ID))
	assert.Equal(t, types.CLAIM_CANCELLED, store.claims[claim.ID].Status)
}

func TestCancelSomeoneElsesClaimForbidden(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})
	other := store.addUser(models.User{Email: "b@y.com"})

	l := NewClaimLifecycle(store, nil)
	claim, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK1"})
	assert.NoError(t, err)

	assert.ErrorIs(t, l.Cancel(claim.ID, other.ID), ErrForbidden)
	assert.Equal(t, types.CLAIM_PENDING, store.claims[claim.ID].Status)
}

func TestCancelNonPendingClaimInvalid(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})
	store.addPass(models.Pass{UserID: user.ID, Tier: "pixel", BookingRef: "BK1"})

	l := NewClaimLifecycle(store, nil)
	claim, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "BK1"})
	assert.NoError(t, err)
	assert.Equal(t, types.CLAIM_VERIFIED, claim.Status)

	assert.ErrorIs(t, l.Cancel(claim.ID, user.ID), ErrInvalidState)
}

func TestCancelUnknownClaimNotFound(t *testing.T) {
	store := newMemStore()
	l := NewClaimLifecycle(store, nil)
	assert.ErrorIs(t, l.Cancel(12345, 1), ErrNotFound)
}

func TestSweepExpiredAdvancesOnlyStaleClaims(t *testing.T) {
	store := newMemStore()
	user := store.addUser(models.User{Email: "a@x.com"})
	other := store.addUser(models.User{Email: "b@y.com"})

	cur := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	l := NewClaimLifecycle(store, func() time.Time { return cur })

	stale, err := l.Submit(user.ID, "a@x.com", &types.SubmitClaimRequestBody{BookingRef: "OLD"})
	assert.NoError(t, err)

	cur = cur.Add(config.ClaimTTL / 2)
	fresh, err := l.Submit(other.ID, "b@y.com", &types.SubmitClaimRequestBody{BookingRef: "NEW"})
	assert.NoError(t, err)

	cur = cur.Add(config.ClaimTTL/2 + time.Second)
	count, err := l.SweepExpired()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, types.CLAIM_EXPIRED, store.claims[stale.ID].Status)
	assert.Equal(t, types.CLAIM_PENDING, store.claims[fresh.ID].Status)

	// re-running the sweep over the same window is a no-op
	count, err = l.SweepExpired()
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
