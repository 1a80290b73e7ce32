package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/flokiorg/lspd/db/migrations"
)

// NewDB opens the sqlite database at uri and runs migrations.
func NewDB(uri string, logQueries bool) (*gorm.DB, error) {
	gormConfig := &gorm.Config{}
	if !logQueries {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	gormDB, err := gorm.Open(sqlite.Open(uri), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", uri, err)
	}

	if err := Migrate(gormDB); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return gormDB, nil
}

// Stop closes the underlying database connection.
func Stop(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate runs the schema migrations for all persisted models.
func Migrate(gormDB *gorm.DB) error {
	return migrations.Migrate(gormDB)
}
