package model

type Agent struct {
	AgentID string `gorm:"column:agent_id;type:varchar(36);primaryKey"`
	UserID  string `gorm:"column:user_id;type:varchar(64);not null;index"`
	Name    string `gorm:"column:name;type:text;not null"`
	Email   string `gorm:"column:email;type:text;not null"`
	Phone   string `gorm:"column:phone;type:text;not null"`
}

func (Agent) TableName() string {
	return "agents"
}

type Lender struct {
	LenderID string `gorm:"column:lender_id;type:varchar(36);primaryKey"`
	UserID   string `gorm:"column:user_id;type:varchar(64);not null;index"`
	Name     string `gorm:"column:name;type:text;not null"`
	Email    string `gorm:"column:email;type:text;not null"`
	Phone    string `gorm:"column:phone;type:text;not null"`
}

func (Lender) TableName() string {
	return "lenders"
}

// All lists every table owned by the referral store, in migration order.
func All() []any {
	return []any{
		&Agent{},
		&Lender{},
		&Referral{},
		&Payment{},
		&AuditEntry{},
		&ActivityEntry{},
		&Note{},
		&CacheEntry{},
	}
}
