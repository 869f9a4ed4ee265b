package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/kgconsolidate/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.ConsolidationRun{},
		&types.ConsolidationRunEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
