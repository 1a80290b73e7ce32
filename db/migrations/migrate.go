package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate brings the database schema up to date. Migrations run in order and
// each one is recorded, so restarts only apply what is new.
func Migrate(gormDB *gorm.DB) error {
	m := gormigrate.New(gormDB, gormigrate.DefaultOptions, []*gormigrate.Migration{
		_202508041100_initial_schema,
	})
	return m.Migrate()
}
