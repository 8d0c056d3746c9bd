package schema

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"referralhub/internal/errs"
)

// SchemaMeta stores key/value facts about the migrated schema.
type SchemaMeta struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Key       string    `gorm:"column:meta_key;type:varchar(191);uniqueIndex;not null"`
	Value     string    `gorm:"column:value;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (SchemaMeta) TableName() string {
	return "schema_meta"
}

const (
	KeySchemaVersion = "schema_version"
	SchemaVersion    = "1"
)

// RecordVersion stamps the schema version after a migration.
func RecordVersion(ctx context.Context, db *gorm.DB) error {
	row := SchemaMeta{Key: KeySchemaVersion, Value: SchemaVersion}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert schema version")
	}
	return nil
}

// CurrentVersion returns "" when the schema was never stamped.
func CurrentVersion(ctx context.Context, db *gorm.DB) (string, error) {
	var row SchemaMeta
	err := db.WithContext(ctx).Where("meta_key = ?", KeySchemaVersion).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errs.Wrap(err, "query schema version")
	}
	return row.Value, nil
}
