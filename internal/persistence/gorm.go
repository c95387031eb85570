package persistence

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// KVRecord is the database row backing one persisted cache record.
type KVRecord struct {
	Key   string `gorm:"primaryKey;column:key" json:"key"`
	Value string `gorm:"column:value" json:"value"`
}

func (KVRecord) TableName() string {
	return "kv_records"
}

// GormBackend persists records to a relational key-value table.
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend creates the backend and migrates the records table.
func NewGormBackend(db *gorm.DB) (*GormBackend, error) {
	if err := db.AutoMigrate(&KVRecord{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate kv_records table")
	}
	return &GormBackend{db: db}, nil
}

func (gb *GormBackend) Name() string {
	return "POSTGRES"
}

func (gb *GormBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	var record KVRecord
	err := gb.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read record %s", key)
	}
	return record.Value, true, nil
}

func (gb *GormBackend) SetItem(ctx context.Context, key string, value string) error {
	record := KVRecord{Key: key, Value: value}
	if err := gb.db.WithContext(ctx).Save(&record).Error; err != nil {
		return errors.Wrapf(err, "failed to save record %s", key)
	}
	return nil
}

func (gb *GormBackend) RemoveItem(ctx context.Context, key string) error {
	if err := gb.db.WithContext(ctx).Delete(&KVRecord{}, "key = ?", key).Error; err != nil {
		return errors.Wrapf(err, "failed to delete record %s", key)
	}
	return nil
}
