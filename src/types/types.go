package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Metadata map[string]any

type PassStatus string

const (
	PASS_ACTIVE    PassStatus = "active"
	PASS_CANCELLED PassStatus = "cancelled"
	PASS_REFUNDED  PassStatus = "refunded"
)

type ClaimStatus string

const (
	CLAIM_PENDING   ClaimStatus = "pending"
	CLAIM_VERIFIED  ClaimStatus = "verified"
	CLAIM_EXPIRED   ClaimStatus = "expired"
	CLAIM_CANCELLED ClaimStatus = "cancelled"
)

type TransactionStatus string

const (
	TRANSACTION_PENDING    TransactionStatus = "pending"
	TRANSACTION_PROCESSING TransactionStatus = "processing"
	TRANSACTION_COMPLETED  TransactionStatus = "completed"
	TRANSACTION_CANCELED   TransactionStatus = "canceled"
	TRANSACTION_EXPIRED    TransactionStatus = "expired"
)

type TransactionKind string

const (
	TXN_PURCHASE TransactionKind = "purchase"
	TXN_UPGRADE  TransactionKind = "upgrade"
)

type UpgradeStatus string

const (
	UPGRADE_COMPLETED UpgradeStatus = "completed"
)

type AppEnv string

const (
	Local      AppEnv = "local"
	Test       AppEnv = "test"
	Production AppEnv = "production"
)

// SubmitClaimRequestBody carries a user's assertion of an externally
// purchased pass. The required_without_all bindings guarantee at least one
// identifier is present before the matcher ever sees the claim.
type SubmitClaimRequestBody struct {
	BookingRef  string  `json:"booking_ref,omitempty" binding:"required_without_all=OrderRef TicketNo QRPayload"`
	OrderRef    string  `json:"order_ref,omitempty" binding:"required_without_all=BookingRef TicketNo QRPayload"`
	TicketNo    string  `json:"ticket_no,omitempty" binding:"required_without_all=BookingRef OrderRef QRPayload"`
	QRPayload   string  `json:"qr_payload,omitempty" binding:"required_without_all=BookingRef OrderRef TicketNo"`
	Email       string  `json:"email,omitempty"`
	DocumentURL *string `json:"document_url,omitempty"`
}

type UpgradeInitiateRequestBody struct {
	ToTier string `json:"to_tier" binding:"required,tierkey"`
}

type UpgradeCompleteRequestBody struct {
	ToTier     string `json:"to_tier" binding:"required,tierkey"`
	PaymentRef string `json:"payment_ref" binding:"required"`
}

type RegisterUserRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type Claims struct {
	Username string `json:"username"`
	UID      string `json:"uid"`
	jwt.RegisteredClaims
}
