package model

type ActivityEntry struct {
	ActivityID uint64 `gorm:"column:activity_id;primaryKey;autoIncrement"`
	ReferralID string `gorm:"column:referral_id;type:varchar(36);not null;index"`
	Actor      string `gorm:"column:actor;type:varchar(16);not null"`
	ActorID    string `gorm:"column:actor_id;type:text;not null"`
	Channel    string `gorm:"column:channel;type:varchar(16);not null"`
	Content    string `gorm:"column:content;type:text;not null"`
	CreatedAt  string `gorm:"column:created_at;type:text;not null"`
}

func (ActivityEntry) TableName() string {
	return "activity_entries"
}
