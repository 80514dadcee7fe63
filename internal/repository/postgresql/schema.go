package postgresql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS slots (
		slot_number     TEXT PRIMARY KEY,
		transport_type  TEXT NOT NULL CHECK (transport_type IN ('Inward', 'Outward')),
		status          TEXT NOT NULL CHECK (status IN ('Available', 'Occupied', 'Reserved')),
		last_changed_at TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id             TEXT PRIMARY KEY,
		slot_number    TEXT NOT NULL,
		vehicle_number TEXT NOT NULL,
		driver_name    TEXT NOT NULL,
		phone_number   TEXT NOT NULL,
		transport_type TEXT NOT NULL,
		check_in_time  TIMESTAMPTZ NOT NULL,
		CONSTRAINT assignments_vehicle_number_key UNIQUE (vehicle_number),
		CONSTRAINT assignments_slot_number_key UNIQUE (slot_number)
	)`,
	`CREATE TABLE IF NOT EXISTS history (
		id             TEXT PRIMARY KEY,
		slot_number    TEXT NOT NULL,
		vehicle_number TEXT NOT NULL,
		driver_name    TEXT NOT NULL,
		phone_number   TEXT NOT NULL,
		transport_type TEXT NOT NULL,
		check_in_time  TIMESTAMPTZ NOT NULL,
		check_out_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS history_vehicle_number_idx ON history (vehicle_number)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id             TEXT PRIMARY KEY,
		slot_number    TEXT NOT NULL,
		reserve_date   TEXT NOT NULL,
		vehicle_number TEXT,
		driver_name    TEXT,
		phone_number   TEXT,
		transport_type TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS reservations_reserve_date_idx ON reservations (reserve_date)`,
}

// Migrate creates the yard tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgresql.Migrate: %w", err)
		}
	}
	return nil
}
