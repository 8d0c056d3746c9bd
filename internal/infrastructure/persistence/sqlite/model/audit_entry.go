package model

type AuditEntry struct {
	AuditEntryID  uint64 `gorm:"column:audit_entry_id;primaryKey;autoIncrement"`
	ReferralID    string `gorm:"column:referral_id;type:varchar(36);not null;uniqueIndex:idx_audit_referral_seq,priority:1"`
	Seq           uint64 `gorm:"column:seq;not null;uniqueIndex:idx_audit_referral_seq,priority:2"`
	Field         string `gorm:"column:field;type:varchar(64);not null"`
	PreviousValue string `gorm:"column:previous_value;type:text;not null"`
	NewValue      string `gorm:"column:new_value;type:text;not null"`
	ActorID       string `gorm:"column:actor_id;type:text;not null"`
	ActorRole     string `gorm:"column:actor_role;type:varchar(16);not null"`
	Timestamp     string `gorm:"column:timestamp;type:text;not null"`
}

func (AuditEntry) TableName() string {
	return "referral_audit_entries"
}
