package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS parking_records (
		id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		no              BIGINT NOT NULL,
		type            TEXT NOT NULL,
		no_plate        TEXT NOT NULL,
		time_in         TEXT NOT NULL,
		time_out        TEXT,
		duration        TEXT,
		block_id        TEXT,
		confidence      NUMERIC(6,4),
		image_path      TEXT,
		raw_result      JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_parking_records_created_at ON parking_records(created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_parking_records_no_plate ON parking_records(no_plate);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
