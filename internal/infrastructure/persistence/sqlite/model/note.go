package model

type Note struct {
	NoteID          uint64 `gorm:"column:note_id;primaryKey;autoIncrement"`
	ReferralID      string `gorm:"column:referral_id;type:varchar(36);not null;index"`
	AuthorID        string `gorm:"column:author_id;type:text;not null"`
	AuthorRole      string `gorm:"column:author_role;type:varchar(16);not null"`
	Content         string `gorm:"column:content;type:text;not null"`
	HiddenFromAgent bool   `gorm:"column:hidden_from_agent;not null;default:false"`
	HiddenFromMC    bool   `gorm:"column:hidden_from_mc;not null;default:false"`
	CreatedAt       string `gorm:"column:created_at;type:text;not null"`
}

func (Note) TableName() string {
	return "referral_notes"
}
