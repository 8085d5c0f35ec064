package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds database constraints the reservation engine
// relies on for correctness under concurrency
func MigrateConstraints(db *gorm.DB) error {
	// A number can be sold at most once per draw
	err := db.Exec(`
		ALTER TABLE sold_numbers
		ADD CONSTRAINT IF NOT EXISTS unique_number_per_draw
		UNIQUE (draw_id, value);
	`).Error
	if err != nil {
		return err
	}

	// Participant listing and occupancy queries filter by draw
	err = db.Exec(`
		CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_sold_numbers_draw_id
		ON sold_numbers (draw_id);
	`).Error
	if err != nil {
		return err
	}

	// The deadline job scans for active draws whose ends_at elapsed
	err = db.Exec(`
		CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_draws_status_ends_at
		ON draws (status, ends_at);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
