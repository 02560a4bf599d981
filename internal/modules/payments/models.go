package payments

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Payment is one payment intent: a record of an attempted M-Pesa charge,
// independent of whether Daraja ever confirms it. Rows are never deleted.
type Payment struct {
	ID      string  `gorm:"type:char(36);primaryKey"`
	UserID  string  `gorm:"type:char(36);not null;index:ix_payments_user_id"`
	EventID *string `gorm:"type:char(36);index:ix_payments_event_id"`

	Amount int    `gorm:"not null"`                  // whole KES, resolved server-side
	Phone  string `gorm:"type:varchar(15);not null"` // 2547XXXXXXXX
	Method string `gorm:"type:varchar(16);not null;default:mpesa"`
	Status string `gorm:"type:varchar(16);not null;index:ix_payments_status"`

	MerchantRequestID  *string `gorm:"type:varchar(128)"`
	CheckoutRequestID  *string `gorm:"type:varchar(128);uniqueIndex:ux_payments_checkout_request_id"`
	MpesaReceiptNumber *string `gorm:"type:varchar(64)"`

	FailureReason *string        `gorm:"type:varchar(255)"`
	RawCallback   datatypes.JSON `gorm:"type:json"`

	IdempotencyKey *string `gorm:"type:varchar(64);index:ix_payments_idempotency_key"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Payment) TableName() string { return "payments" }

// Terminal reports whether the intent has reached SUCCESS or FAILED.
// Terminal states are sticky; later callbacks must not move them.
func (p Payment) Terminal() bool {
	return p.Status == StatusSuccess || p.Status == StatusFailed
}
