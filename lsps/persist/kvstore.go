package persist

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KVStore interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Delete(key string) error
}

type GormKVStore struct {
	db *gorm.DB
}

func NewGormKVStore(db *gorm.DB) *GormKVStore {
	return &GormKVStore{db: db}
}

func (s *GormKVStore) Read(key string) ([]byte, error) {
	var entry KVEntry
	// Use Find instead of First to avoid "record not found" logs which are annoying for a KV store
	result := s.db.Where("key = ?", key).Find(&entry)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return []byte(entry.Value), nil
}

func (s *GormKVStore) Write(key string, data []byte) error {
	entry := KVEntry{
		Key:   key,
		Value: datatypes.JSON(data),
	}
	// Upsert
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry)

	if result.Error != nil {
		return fmt.Errorf("failed to write key %s: %w", key, result.Error)
	}
	return nil
}

func (s *GormKVStore) Delete(key string) error {
	result := s.db.Where("key = ?", key).Delete(&KVEntry{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, result.Error)
	}
	return nil
}
