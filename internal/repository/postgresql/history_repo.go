package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"
)

type pgHistoryRepository struct {
	db *sql.DB
}

func NewPgHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &pgHistoryRepository{db: db}
}

func (r *pgHistoryRepository) Create(ctx context.Context, rec *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	query := `INSERT INTO history (id, slot_number, vehicle_number, driver_name, phone_number, transport_type, check_in_time, check_out_time)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.SlotNumber, rec.VehicleNumber, rec.DriverName, rec.PhoneNumber, rec.TransportType,
		rec.CheckInTime, rec.CheckOutTime,
	)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return nil, fmt.Errorf("%w: history record %q", repository.ErrDuplicateEntry, rec.ID)
		}
		return nil, fmt.Errorf("HistoryRepository.Create: %w", err)
	}
	return rec, nil
}

func (r *pgHistoryRepository) Find(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryRecord, error) {
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

	query := `SELECT id, slot_number, vehicle_number, driver_name, phone_number, transport_type, check_in_time, check_out_time FROM history`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY check_out_time DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("HistoryRepository.Find: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		if err := rows.Scan(
			&rec.ID, &rec.SlotNumber, &rec.VehicleNumber, &rec.DriverName, &rec.PhoneNumber, &rec.TransportType,
			&rec.CheckInTime, &rec.CheckOutTime,
		); err != nil {
			return nil, fmt.Errorf("HistoryRepository.Find (scanning row): %w", err)
		}
		rec.CheckInTime = rec.CheckInTime.In(time.UTC)
		rec.CheckOutTime = rec.CheckOutTime.In(time.UTC)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("HistoryRepository.Find (rows error): %w", err)
	}
	return records, nil
}
