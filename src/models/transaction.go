package models

import (
	"summit/src/types"

	"github.com/google/uuid"
)

// Transaction links a provider payment to a pass purchase or upgrade.
// Its status is the idempotency gate for webhook redelivery: an order
// whose transaction is already completed is acknowledged and skipped.
type Transaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	ReferenceID string                  `gorm:"index" json:"reference_id,omitempty"`
	Kind        types.TransactionKind   `gorm:"default:'purchase'" json:"kind,omitempty"`
	Status      types.TransactionStatus `gorm:"default:'pending'" json:"status,omitempty"`
	Amount      float64                 `json:"amount"`
	Currency    string                  `json:"currency,omitempty"`
	UserID      uint                    `json:"user_id,omitempty"`
	PassID      *uint                   `json:"pass_id,omitempty"`
	Metadata    types.JSONB             `gorm:"type:jsonb" json:"metadata,omitempty"`

	Pass *Pass `gorm:"foreignKey:pass_id" json:"-"`

	types.Timestamps
}
