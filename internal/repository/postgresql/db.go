package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"yard_parking/internal/config"
	"yard_parking/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// NewDB opens the yard database with cfg.DBDriver: "pgx" for pgx/stdlib, "postgres" for lib/pq.
func NewDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)

	db, err := sql.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewStore wires the four Postgres repositories over db.
func NewStore(db *sql.DB) *repository.Store {
	return &repository.Store{
		Slots:        NewPgSlotRepository(db),
		Assignments:  NewPgAssignmentRepository(db),
		History:      NewPgHistoryRepository(db),
		Reservations: NewPgReservationRepository(db),
	}
}

// uniqueConstraint reports the violated constraint name when err is a unique violation
// from either driver.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// assignmentConflict maps a unique violation on the assignments table to the
// repository's conditional-write errors.
func assignmentConflict(err error) error {
	constraint, ok := uniqueConstraint(err)
	if !ok {
		return nil
	}
	switch constraint {
	case "assignments_vehicle_number_key":
		return repository.ErrVehicleTaken
	case "assignments_slot_number_key":
		return repository.ErrSlotTaken
	}
	return repository.ErrDuplicateEntry
}
