package database

import (
	"fmt"

	"github.com/jmylchreest/vodforge/internal/models"
)

// AutoMigrate brings the schema up to date with the current model set.
// There is no migration history to replay: this is a from-scratch schema,
// so GORM's reflection-based AutoMigrate is sufficient and avoids having to
// hand-author a migrations/ directory for a single generation of models.
func (db *DB) AutoMigrate() error {
	if err := db.DB.AutoMigrate(
		&models.Video{},
		&models.Subtitle{},
		&models.Attachment{},
		&models.Chapter{},
	); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}
