package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/flokiorg/lspd/lsps/persist"
)

var _202508041100_initial_schema = &gormigrate.Migration{
	ID: "202508041100_initial_schema",
	Migrate: func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&persist.Order{},
			&persist.KVEntry{},
		)
	},
	Rollback: func(tx *gorm.DB) error {
		if err := tx.Migrator().DropTable(&persist.Order{}); err != nil {
			return err
		}
		return tx.Migrator().DropTable(&persist.KVEntry{})
	},
}
