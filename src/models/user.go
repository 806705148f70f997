package models

import (
	"summit/src/types"
)

type User struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Name        string          `json:"name,omitempty"`
	Email       string          `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Affiliation string          `json:"affiliation,omitempty"`
	UID         string          `gorm:"index" json:"uid,omitempty"`
	Metadata    *types.Metadata `gorm:"type:jsonb" json:"metadata,omitempty"`

	Passes []Pass         `gorm:"foreignKey:user_id" json:"passes,omitempty"`
	Claims []PendingClaim `gorm:"foreignKey:user_id" json:"claims,omitempty"`

	types.Timestamps
}
