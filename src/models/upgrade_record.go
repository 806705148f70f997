package models

import "summit/src/types"

// UpgradeRecord is an insert-only history entry written as a side effect
// of a successful tier upgrade. Never mutated or deleted.
type UpgradeRecord struct {
	ID       uint    `gorm:"primarykey" json:"id"`
	PassID   uint    `gorm:"index" json:"pass_id,omitempty"`
	UserID   uint    `gorm:"index" json:"user_id,omitempty"`
	FromTier string  `json:"from_tier,omitempty"`
	ToTier   string  `json:"to_tier,omitempty"`
	Fee      float64 `json:"fee"`
	OldPrice float64 `json:"old_price"`
	NewPrice float64 `json:"new_price"`

	Status     types.UpgradeStatus `gorm:"default:'completed'" json:"status,omitempty"`
	PaymentRef string              `json:"payment_ref,omitempty"`

	Pass *Pass `gorm:"foreignKey:pass_id" json:"-"`

	types.Timestamps
}
