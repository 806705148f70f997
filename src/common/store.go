package common

import (
	"summit/src/models"
	"summit/src/types"
	"time"
)

// Clock is injected into the lifecycle manager and matcher so expiry
// behavior can be asserted deterministically in tests.
type Clock func() time.Time

// Store is the single shared mutable surface over passes, claims, users
// and transactions. Components never touch Pass fields outside the
// store's atomic operations.
type Store interface {
	FindUserByID(id uint) (*models.User, error)
	FindUserByUID(uid string) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	CreateUser(u *models.User) error
	AttachUID(userID uint, uid string) error

	FindPass(id uint) (*models.Pass, error)
	FindActivePass(userID uint) (*models.Pass, error)
	// FindPassByBookingRef matches booking_ref, order_ref or the internal
	// pass id against the submitted reference.
	FindPassByBookingRef(ref string) (*models.Pass, error)
	FindPassByOrderRef(ref string) (*models.Pass, error)
	// FindPassByTicketNo tolerates partial ticket numbers: the fragment is
	// matched as a substring of booking_ref or the pass id.
	FindPassByTicketNo(fragment string) (*models.Pass, error)
	FindPassByQRPayload(payload string) (*models.Pass, error)
	CreateActivePass(p *models.Pass) error

	FindClaim(id uint) (*models.PendingClaim, error)
	FindPendingClaimByBookingRef(userID uint, bookingRef string) (*models.PendingClaim, error)
	CreateClaim(c *models.PendingClaim) error
	// UpdateClaimStatus transitions a claim only when it still holds the
	// expected current status, so concurrent sweeps and polls converge.
	UpdateClaimStatus(id uint, from, to types.ClaimStatus) error
	SweepExpiredClaims(now time.Time) (int64, error)

	// VerifyClaim commits the claim transition to verified together with
	// the optional ownership transfer in one transaction.
	VerifyClaim(claimID, passID uint, transferTo *uint, at time.Time) error
	// ApplyUpgrade re-validates the tier pairing under a row lock, inserts
	// the history record, mutates the pass and marks the linked payment
	// transaction completed in one transaction.
	ApplyUpgrade(passID uint, toTier, paymentRef string) (*models.Pass, *models.UpgradeRecord, error)
	FindUpgradeRecordByPaymentRef(ref string) (*models.UpgradeRecord, error)
	// CompleteOrder inserts the pass and marks the originating transaction
	// completed in one transaction. The returned bool is false when the
	// order was already completed and nothing was created.
	CompleteOrder(referenceID string, p *models.Pass) (*models.Pass, bool, error)

	CreateTransaction(t *models.Transaction) error
	FindTransactionByReference(ref string) (*models.Transaction, error)
	UpdateTransactionStatus(ref string, to types.TransactionStatus) error
}
