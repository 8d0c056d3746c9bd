package model

// CacheEntry backs the database cache. ExpiresAt is nil for entries that
// never expire.
type CacheEntry struct {
	Key       string  `gorm:"column:cache_key;type:varchar(191);primaryKey"`
	Value     string  `gorm:"column:value;type:text;not null"`
	ExpiresAt *string `gorm:"column:expires_at;type:varchar(40);index"`
	UpdatedAt string  `gorm:"column:updated_at;type:text;not null"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}
