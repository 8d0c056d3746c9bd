package model

type Referral struct {
	ReferralID             string  `gorm:"column:referral_id;type:varchar(36);primaryKey"`
	BorrowerFirstName      string  `gorm:"column:borrower_first_name;type:text;not null"`
	BorrowerLastName       string  `gorm:"column:borrower_last_name;type:text;not null"`
	BorrowerEmail          string  `gorm:"column:borrower_email;type:text;not null"`
	BorrowerPhone          string  `gorm:"column:borrower_phone;type:text;not null"`
	Status                 string  `gorm:"column:status;type:varchar(32);not null;index"`
	StatusLastUpdated      string  `gorm:"column:status_last_updated;type:text;not null"`
	PreApprovalAmountCents int64   `gorm:"column:pre_approval_amount_cents;not null;default:0"`
	EstPurchasePriceCents  int64   `gorm:"column:est_purchase_price_cents;not null;default:0"`
	CommissionBasisPoints  int64   `gorm:"column:commission_basis_points;not null;default:0"`
	ReferralFeeBasisPoints int64   `gorm:"column:referral_fee_basis_points;not null;default:0"`
	ReferralFeeDueCents    int64   `gorm:"column:referral_fee_due_cents;not null;default:0"`
	PropertyAddress        string  `gorm:"column:property_address;type:text;not null"`
	PropertyCity           string  `gorm:"column:property_city;type:text;not null"`
	PropertyState          string  `gorm:"column:property_state;type:text;not null"`
	PropertyPostalCode     string  `gorm:"column:property_postal_code;type:text;not null"`
	AgentID                *string `gorm:"column:agent_id;type:varchar(36);index"`
	LenderID               *string `gorm:"column:lender_id;type:varchar(36);index"`
	CreatedAt              string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt              string  `gorm:"column:updated_at;type:text;not null"`
	DeletedAt              *string `gorm:"column:deleted_at;type:text"`
}

func (Referral) TableName() string {
	return "referrals"
}
