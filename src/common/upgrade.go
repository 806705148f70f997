package common

import (
	"errors"
	"summit/src/models"
	"summit/src/tiers"
	"summit/src/types"

	"github.com/google/uuid"
)

// Eligibility is the answer to "can this pass be upgraded, and to what".
type Eligibility struct {
	CanUpgrade bool           `json:"can_upgrade"`
	Reason     string         `json:"reason,omitempty"`
	Options    []tiers.Option `json:"options,omitempty"`
}

// UpgradeEngine validates tier ascents, computes fees and applies the
// upgrade as one atomic unit against the store.
type UpgradeEngine struct {
	store Store
}

func NewUpgradeEngine(store Store) *UpgradeEngine {
	return &UpgradeEngine{store: store}
}

func (e *UpgradeEngine) CheckEligibility(passID uint) (*Eligibility, error) {
	pass, err := e.store.FindPass(passID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Eligibility{CanUpgrade: false, Reason: "pass not found"}, nil
		}
		return nil, err
	}
	if pass.Status != types.PASS_ACTIVE {
		return &Eligibility{CanUpgrade: false, Reason: "pass is not active"}, nil
	}
	if !tiers.IsKnown(pass.Tier) {
		return &Eligibility{CanUpgrade: false, Reason: "unknown pass tier"}, nil
	}
	if tiers.Normalize(pass.Tier) == tiers.Top() {
		return &Eligibility{CanUpgrade: false, Reason: "already at the highest tier"}, nil
	}
	return &Eligibility{
		CanUpgrade: true,
		Options:    tiers.OptionsAbove(pass.Tier),
	}, nil
}

// Initiate validates the requested ascent and opens a pending upgrade
// transaction whose reference doubles as the payment order ref.
func (e *UpgradeEngine) Initiate(passID uint, toTier string) (*models.Transaction, error) {
	pass, err := e.store.FindPass(passID)
	if err != nil {
		return nil, err
	}
	to := tiers.Normalize(toTier)
	if pass.Status != types.PASS_ACTIVE || !tiers.IsValidUpgrade(pass.Tier, to) {
		return nil, ErrInvalidUpgrade
	}
	txn := &models.Transaction{
		ReferenceID: uuid.NewString(),
		Kind:        types.TXN_UPGRADE,
		Status:      types.TRANSACTION_PENDING,
		Amount:      tiers.Fee(pass.Tier, to),
		Currency:    "usd",
		UserID:      pass.UserID,
		PassID:      &pass.ID,
		Metadata: types.JSONB{
			"from_tier": tiers.Normalize(pass.Tier),
			"to_tier":   to,
		},
	}
	if err := e.store.CreateTransaction(txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Apply commits the upgrade. Validation runs again inside the store's
// transaction under a row lock, so a stale eligibility check cannot slip
// a non-ascending mutation through.
func (e *UpgradeEngine) Apply(passID uint, toTier, paymentRef string) (*models.Pass, *models.UpgradeRecord, error) {
	return e.store.ApplyUpgrade(passID, toTier, paymentRef)
}

// VerifyPayment checks that the reference paid for this exact upgrade:
// a settled upgrade-kind transaction bound to the same pass and target
// tier, not yet consumed by an earlier apply. A completed reference for
// a cheaper ascent can never be replayed against a higher tier.
func (e *UpgradeEngine) VerifyPayment(passID uint, toTier, paymentRef string) error {
	txn, err := e.store.FindTransactionByReference(paymentRef)
	if err != nil {
		return err
	}
	if txn.Status != types.TRANSACTION_COMPLETED {
		return ErrPaymentIncomplete
	}
	if txn.Kind != types.TXN_UPGRADE || txn.PassID == nil || *txn.PassID != passID {
		return ErrPaymentMismatch
	}
	if paidFor, _ := txn.Metadata["to_tier"].(string); paidFor != tiers.Normalize(toTier) {
		return ErrPaymentMismatch
	}
	if _, err := e.store.FindUpgradeRecordByPaymentRef(paymentRef); err == nil {
		return ErrPaymentConsumed
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// newUpgradeRecord re-validates the pairing against the freshly locked
// pass row and builds the history entry. Both store implementations call
// this under their own lock so the rules cannot diverge.
func newUpgradeRecord(pass *models.Pass, toTier, paymentRef string) (*models.UpgradeRecord, error) {
	if pass.Status != types.PASS_ACTIVE {
		return nil, ErrInvalidUpgrade
	}
	to := tiers.Normalize(toTier)
	if !tiers.IsValidUpgrade(pass.Tier, to) {
		return nil, ErrInvalidUpgrade
	}
	return &models.UpgradeRecord{
		PassID:     pass.ID,
		UserID:     pass.UserID,
		FromTier:   tiers.Normalize(pass.Tier),
		ToTier:     to,
		Fee:        tiers.Fee(pass.Tier, to),
		OldPrice:   pass.Price,
		NewPrice:   tiers.Price(to),
		Status:     types.UPGRADE_COMPLETED,
		PaymentRef: paymentRef,
	}, nil
}
