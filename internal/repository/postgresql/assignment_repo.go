package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"
)

type pgAssignmentRepository struct {
	db *sql.DB
}

// NewPgAssignmentRepository relies on the UNIQUE constraints on vehicle_number and
// slot_number to make Create and UpdateSlot conditional.
func NewPgAssignmentRepository(db *sql.DB) repository.AssignmentRepository {
	return &pgAssignmentRepository{db: db}
}

const assignmentColumns = `id, slot_number, vehicle_number, driver_name, phone_number, transport_type, check_in_time`

func (r *pgAssignmentRepository) Create(ctx context.Context, a *domain.Assignment) (*domain.Assignment, error) {
	query := `INSERT INTO assignments (` + assignmentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.SlotNumber, a.VehicleNumber, a.DriverName, a.PhoneNumber, a.TransportType, a.CheckInTime,
	)
	if err != nil {
		if conflict := assignmentConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("AssignmentRepository.Create: %w", err)
	}
	return a, nil
}

func (r *pgAssignmentRepository) FindByID(ctx context.Context, id string) (*domain.Assignment, error) {
	a := &domain.Assignment{}
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.SlotNumber, &a.VehicleNumber, &a.DriverName, &a.PhoneNumber, &a.TransportType, &a.CheckInTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("AssignmentRepository.FindByID: %w", err)
	}
	a.CheckInTime = a.CheckInTime.In(time.UTC)
	return a, nil
}

func (r *pgAssignmentRepository) Find(ctx context.Context, filter repository.AssignmentFilter) ([]domain.Assignment, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if filter.VehicleNumber != nil {
		conditions = append(conditions, fmt.Sprintf("vehicle_number = $%d", argID))
		args = append(args, *filter.VehicleNumber)
		argID++
	}
	if filter.SlotNumber != nil {
		conditions = append(conditions, fmt.Sprintf("slot_number = $%d", argID))
		args = append(args, *filter.SlotNumber)
		argID++
	}

	query := `SELECT ` + assignmentColumns + ` FROM assignments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY check_in_time"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("AssignmentRepository.Find: %w", err)
	}
	defer rows.Close()

	var assignments []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(
			&a.ID, &a.SlotNumber, &a.VehicleNumber, &a.DriverName, &a.PhoneNumber, &a.TransportType, &a.CheckInTime,
		); err != nil {
			return nil, fmt.Errorf("AssignmentRepository.Find (scanning row): %w", err)
		}
		a.CheckInTime = a.CheckInTime.In(time.UTC)
		assignments = append(assignments, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("AssignmentRepository.Find (rows error): %w", err)
	}
	return assignments, nil
}

func (r *pgAssignmentRepository) UpdateSlot(ctx context.Context, id string, slotNumber string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE assignments SET slot_number = $1 WHERE id = $2`, slotNumber, id)
	if err != nil {
		if conflict := assignmentConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("AssignmentRepository.UpdateSlot: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("AssignmentRepository.UpdateSlot (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgAssignmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("AssignmentRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("AssignmentRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
