package model

type Payment struct {
	PaymentID           string  `gorm:"column:payment_id;type:varchar(36);primaryKey"`
	ReferralID          string  `gorm:"column:referral_id;type:varchar(36);not null;index:idx_payments_referral_status,priority:1"`
	Status              string  `gorm:"column:status;type:varchar(32);not null;index:idx_payments_referral_status,priority:2"`
	ExpectedAmountCents int64   `gorm:"column:expected_amount_cents;not null;default:0"`
	ReceivedAmountCents int64   `gorm:"column:received_amount_cents;not null;default:0"`
	InvoicedAt          *string `gorm:"column:invoiced_at;type:text"`
	PaidAt              *string `gorm:"column:paid_at;type:text"`
	Notes               string  `gorm:"column:notes;type:text;not null"`
	CreatedAt           string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt           string  `gorm:"column:updated_at;type:text;not null"`
}

func (Payment) TableName() string {
	return "payments"
}
