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

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

const reservationColumns = `id, slot_number, reserve_date, vehicle_number, driver_name, phone_number, transport_type, created_at`

func (r *pgReservationRepository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	query := `INSERT INTO reservations (id, slot_number, reserve_date, vehicle_number, driver_name, phone_number, transport_type, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
	           RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		res.ID, res.SlotNumber, res.ReserveDate, res.VehicleNumber, res.DriverName, res.PhoneNumber, res.TransportType,
	).Scan(&res.CreatedAt)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return nil, fmt.Errorf("%w: reservation %q", repository.ErrDuplicateEntry, res.ID)
		}
		return nil, fmt.Errorf("ReservationRepository.Create: %w", err)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&res.ID, &res.SlotNumber, &res.ReserveDate, &res.VehicleNumber, &res.DriverName,
		&res.PhoneNumber, &res.TransportType, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) Find(ctx context.Context, filter repository.ReservationFilter) ([]domain.Reservation, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if filter.SlotNumber != nil {
		conditions = append(conditions, fmt.Sprintf("slot_number = $%d", argID))
		args = append(args, *filter.SlotNumber)
		argID++
	}
	if filter.ReserveDate != nil {
		conditions = append(conditions, fmt.Sprintf("reserve_date = $%d", argID))
		args = append(args, *filter.ReserveDate)
		argID++
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY reserve_date, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID, &res.SlotNumber, &res.ReserveDate, &res.VehicleNumber, &res.DriverName,
			&res.PhoneNumber, &res.TransportType, &res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ReservationRepository.Find (scanning row): %w", err)
		}
		res.CreatedAt = res.CreatedAt.In(time.UTC)
		reservations = append(reservations, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find (rows error): %w", err)
	}
	return reservations, nil
}

func (r *pgReservationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ReservationRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ReservationRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
