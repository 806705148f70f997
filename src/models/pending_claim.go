package models

import (
	"summit/src/types"
	"time"
)

// PendingClaim is a user's unverified assertion that they bought a pass
// through the external ticketing provider. pending is the only live state;
// verified, expired and cancelled are terminal.
type PendingClaim struct {
	ID     uint              `gorm:"primarykey" json:"id"`
	UserID uint              `gorm:"index" json:"user_id,omitempty"`
	Status types.ClaimStatus `gorm:"default:'pending'" json:"status,omitempty"`

	BookingRef string `json:"booking_ref,omitempty"`
	OrderRef   string `json:"order_ref,omitempty"`
	TicketNo   string `json:"ticket_no,omitempty"`
	QRPayload  string `json:"-"`
	Email      string `json:"email,omitempty"`

	ExpiresAt   time.Time  `gorm:"index" json:"expires_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	PassID      *uint      `json:"pass_id,omitempty"`
	DocumentURL *string    `json:"document_url,omitempty"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Pass *Pass `gorm:"foreignKey:pass_id" json:"pass,omitempty"`

	types.Timestamps
}

// HasIdentifier reports whether at least one matchable identifier was
// submitted with the claim.
func (c *PendingClaim) HasIdentifier() bool {
	return c.BookingRef != "" || c.OrderRef != "" || c.TicketNo != "" || c.QRPayload != ""
}
