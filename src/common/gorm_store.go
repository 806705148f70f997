package common

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"summit/src/models"
	"summit/src/types"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the postgres-backed Store used in production.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.
		Model(&models.User{}).
		Where(&models.User{ID: id}).
		First(&user).
		Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByUID(uid string) (*models.User, error) {
	var user models.User
	if err := s.db.
		Model(&models.User{}).
		Where("uid = ?", uid).
		First(&user).
		Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.
		Model(&models.User{}).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user).
		Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	return s.db.Create(u).Error
}

func (s *GormStore) AttachUID(userID uint, uid string) error {
	return s.db.
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("uid", uid).
		Error
}

func (s *GormStore) FindPass(id uint) (*models.Pass, error) {
	var pass models.Pass
	if err := s.db.
		Model(&models.Pass{}).
		Where(&models.Pass{ID: id}).
		First(&pass).
		Error; err != nil {
		return nil, translate(err)
	}
	return &pass, nil
}

func (s *GormStore) FindActivePass(userID uint) (*models.Pass, error) {
	var pass models.Pass
	if err := s.db.
		Model(&models.Pass{}).
		Where("user_id = ? AND status = ?", userID, types.PASS_ACTIVE).
		First(&pass).
		Error; err != nil {
		return nil, translate(err)
	}
	return &pass, nil
}

func (s *GormStore) FindPassByBookingRef(ref string) (*models.Pass, error) {
	var pass models.Pass
	if err := s.db.
		Model(&models.Pass{}).
		Where("booking_ref = ? OR order_ref = ? OR CAST(id AS TEXT) = ?", ref, ref, ref).
		First(&pass).
		Error; err != nil {
		return nil, translate(err)
	}
	return &pass, nil
}

func (s *GormStore) FindPassByOrderRef(ref string) (*models.Pass, error) {
	var pass models.Pass
	if err := s.db.
		Model(&models.Pass{}).
		Where("order_ref = ?", ref).
		First(&pass).
		Error; err != nil {
		return nil, translate(err)
	}
	return &pass, nil
}

func (s *GormStore) FindPassByTicketNo(fragment string) (*models.Pass, error) {
	var pass models.Pass
	like := fmt.Sprintf("%%%s%%", fragment)
	if err := s.db.
		Model(&models.Pass{}).
		Where("booking_ref LIKE ? OR CAST(id AS TEXT) LIKE ?", like, like).
		First(&pass).
		Error; err != nil {
		return nil, translate(err)
	}
	return &pass, nil
}

func (s *GormStore) FindPassByQRPayload(payload string) (*models.Pass, error) {
	var pass models.Pass
	if err := s.db.
		Model(&models.Pass{}).
		Where("qr_payload = ?", payload).
		First(&pass).
		Error; err != nil {
		return nil, translate(err)
	}
	return &pass, nil
}

// CreateActivePass relies on the partial unique index on (user_id) WHERE
// status = 'active' to close the check-then-insert race.
func (s *GormStore) CreateActivePass(p *models.Pass) error {
	p.Status = types.PASS_ACTIVE
	if err := s.db.Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyHasPass
		}
		return err
	}
	return nil
}

func (s *GormStore) FindClaim(id uint) (*models.PendingClaim, error) {
	var claim models.PendingClaim
	if err := s.db.
		Model(&models.PendingClaim{}).
		Where(&models.PendingClaim{ID: id}).
		Preload("Pass").
		First(&claim).
		Error; err != nil {
		return nil, translate(err)
	}
	return &claim, nil
}

func (s *GormStore) FindPendingClaimByBookingRef(userID uint, bookingRef string) (*models.PendingClaim, error) {
	var claim models.PendingClaim
	if err := s.db.
		Model(&models.PendingClaim{}).
		Where("user_id = ? AND booking_ref = ? AND status = ?", userID, bookingRef, types.CLAIM_PENDING).
		First(&claim).
		Error; err != nil {
		return nil, translate(err)
	}
	return &claim, nil
}

func (s *GormStore) CreateClaim(c *models.PendingClaim) error {
	return s.db.Create(c).Error
}

func (s *GormStore) UpdateClaimStatus(id uint, from, to types.ClaimStatus) error {
	return s.db.
		Model(&models.PendingClaim{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to).
		Error
}

func (s *GormStore) SweepExpiredClaims(now time.Time) (int64, error) {
	res := s.db.
		Model(&models.PendingClaim{}).
		Where("status = ? AND expires_at < ?", types.CLAIM_PENDING, now).
		Update("status", types.CLAIM_EXPIRED)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *GormStore) VerifyClaim(claimID, passID uint, transferTo *uint, at time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if transferTo != nil {
			var pass models.Pass
			if err := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", passID).
				First(&pass).
				Error; err != nil {
				return translate(err)
			}
			if err := tx.
				Model(&models.Pass{}).
				Where("id = ?", passID).
				Update("user_id", *transferTo).
				Error; err != nil {
				log.Printf("Error transferring Pass [%d] to user [%d]: %s\n", passID, *transferTo, err.Error())
				return err
			}
		}
		return tx.
			Model(&models.PendingClaim{}).
			Where("id = ? AND status = ?", claimID, types.CLAIM_PENDING).
			Updates(map[string]any{
				"status":      types.CLAIM_VERIFIED,
				"verified_at": at,
				"pass_id":     passID,
			}).
			Error
	})
}

func (s *GormStore) ApplyUpgrade(passID uint, toTier, paymentRef string) (*models.Pass, *models.UpgradeRecord, error) {
	var pass models.Pass
	var rec *models.UpgradeRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", passID).
			First(&pass).
			Error; err != nil {
			return translate(err)
		}
		var err error
		rec, err = newUpgradeRecord(&pass, toTier, paymentRef)
		if err != nil {
			return err
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Pass{}).
			Where("id = ?", passID).
			Updates(map[string]any{
				"tier":  rec.ToTier,
				"price": rec.NewPrice,
			}).
			Error; err != nil {
			return err
		}
		if rec.PaymentRef != "" {
			// The paid transaction settles in the same unit as the pass
			// mutation, so a crash leaves it pending and safe to retry.
			if err := tx.
				Model(&models.Transaction{}).
				Where("reference_id = ? AND kind = ?", rec.PaymentRef, types.TXN_UPGRADE).
				Updates(map[string]any{
					"status":  types.TRANSACTION_COMPLETED,
					"pass_id": passID,
				}).
				Error; err != nil {
				return err
			}
		}
		pass.Tier = rec.ToTier
		pass.Price = rec.NewPrice
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &pass, rec, nil
}

func (s *GormStore) FindUpgradeRecordByPaymentRef(ref string) (*models.UpgradeRecord, error) {
	var rec models.UpgradeRecord
	if err := s.db.
		Model(&models.UpgradeRecord{}).
		Where("payment_ref = ?", ref).
		First(&rec).
		Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (s *GormStore) CompleteOrder(referenceID string, p *models.Pass) (*models.Pass, bool, error) {
	var created bool
	var out *models.Pass
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txn models.Transaction
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference_id = ?", referenceID).
			First(&txn).
			Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if found && txn.Status == types.TRANSACTION_COMPLETED {
			// Webhook redelivery: acknowledge without a second pass.
			if txn.PassID != nil {
				var existing models.Pass
				if err := tx.Where("id = ?", *txn.PassID).First(&existing).Error; err == nil {
					out = &existing
				}
			}
			return nil
		}
		p.Status = types.PASS_ACTIVE
		if err := tx.Create(p).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyHasPass
			}
			return err
		}
		if !found {
			txn = models.Transaction{
				ReferenceID: referenceID,
				Kind:        types.TXN_PURCHASE,
				UserID:      p.UserID,
				Amount:      p.Price,
			}
			txn.Status = types.TRANSACTION_COMPLETED
			txn.PassID = &p.ID
			if err := tx.Create(&txn).Error; err != nil {
				return err
			}
		} else {
			if err := tx.
				Model(&models.Transaction{}).
				Where("reference_id = ?", referenceID).
				Updates(map[string]any{
					"status":  types.TRANSACTION_COMPLETED,
					"pass_id": p.ID,
				}).
				Error; err != nil {
				return err
			}
		}
		out = p
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (s *GormStore) CreateTransaction(t *models.Transaction) error {
	return s.db.Create(t).Error
}

func (s *GormStore) FindTransactionByReference(ref string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.
		Model(&models.Transaction{}).
		Where("reference_id = ?", ref).
		First(&txn).
		Error; err != nil {
		return nil, translate(err)
	}
	return &txn, nil
}

func (s *GormStore) UpdateTransactionStatus(ref string, to types.TransactionStatus) error {
	return s.db.
		Model(&models.Transaction{}).
		Where("reference_id = ?", ref).
		Update("status", to).
		Error
}
