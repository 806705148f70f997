package models

import (
	"summit/src/types"
	"time"
)

// Pass is the authoritative record of one issued summit entitlement. A pass
// belongs to exactly one user at a time; ownership moves only through
// the store's transfer operation. The one-active-pass-per-user rule is
// enforced by a partial unique index created in boot.InitDb.
type Pass struct {
	ID     uint             `gorm:"primarykey" json:"id"`
	UserID uint             `gorm:"index" json:"user_id,omitempty"`
	Tier   string           `json:"tier,omitempty"`
	Price  float64          `json:"price"`
	Status types.PassStatus `gorm:"default:'active'" json:"status,omitempty"`

	BookingRef string `gorm:"index" json:"booking_ref,omitempty"`
	OrderRef   string `gorm:"index" json:"order_ref,omitempty"`
	TicketNo   string `json:"ticket_no,omitempty"`
	QRPayload  string `json:"-"`

	Details     *types.JSONB `gorm:"type:jsonb" json:"details,omitempty"`
	DocumentURL *string      `json:"document_url,omitempty"`
	PurchasedAt *time.Time   `json:"purchased_at,omitempty"`

	User     *User           `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Upgrades []UpgradeRecord `gorm:"foreignKey:pass_id" json:"upgrades,omitempty"`

	types.Timestamps
}
