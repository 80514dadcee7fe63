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

type pgSlotRepository struct {
	db *sql.DB
}

func NewPgSlotRepository(db *sql.DB) repository.SlotRepository {
	return &pgSlotRepository{db: db}
}

func (r *pgSlotRepository) Create(ctx context.Context, slot *domain.Slot) (*domain.Slot, error) {
	query := `INSERT INTO slots (slot_number, transport_type, status, created_at)
	           VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
	           RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, slot.SlotNumber, slot.TransportType, slot.Status).Scan(&slot.CreatedAt)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return nil, fmt.Errorf("%w: slot %q", repository.ErrDuplicateEntry, slot.SlotNumber)
		}
		return nil, fmt.Errorf("SlotRepository.Create: %w", err)
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	return slot, nil
}

func (r *pgSlotRepository) FindByNumber(ctx context.Context, slotNumber string) (*domain.Slot, error) {
	slot := &domain.Slot{}
	query := `SELECT slot_number, transport_type, status, last_changed_at, created_at
	           FROM slots WHERE slot_number = $1`
	err := r.db.QueryRowContext(ctx, query, slotNumber).Scan(
		&slot.SlotNumber, &slot.TransportType, &slot.Status, &slot.LastChangedAt, &slot.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SlotRepository.FindByNumber: %w", err)
	}
	normalizeSlot(slot)
	return slot, nil
}

func (r *pgSlotRepository) Find(ctx context.Context, filter repository.SlotFilter) ([]domain.Slot, error) {
	baseQuery := `SELECT slot_number, transport_type, status, last_changed_at, created_at FROM slots`

	var conditions []string
	var args []interface{}
	argID := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}
	if filter.TransportType != nil {
		conditions = append(conditions, fmt.Sprintf("transport_type = $%d", argID))
		args = append(args, *filter.TransportType)
		argID++
	}

	query := baseQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY slot_number"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SlotRepository.Find: %w", err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var slot domain.Slot
		if err := rows.Scan(&slot.SlotNumber, &slot.TransportType, &slot.Status, &slot.LastChangedAt, &slot.CreatedAt); err != nil {
			return nil, fmt.Errorf("SlotRepository.Find (scanning row): %w", err)
		}
		normalizeSlot(&slot)
		slots = append(slots, slot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("SlotRepository.Find (rows error): %w", err)
	}
	return slots, nil
}

func (r *pgSlotRepository) UpdateStatus(ctx context.Context, slotNumber string, status domain.SlotStatus) error {
	query := `UPDATE slots SET status = $1, last_changed_at = CURRENT_TIMESTAMP WHERE slot_number = $2`
	result, err := r.db.ExecContext(ctx, query, status, slotNumber)
	if err != nil {
		return fmt.Errorf("SlotRepository.UpdateStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("SlotRepository.UpdateStatus (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func normalizeSlot(slot *domain.Slot) {
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	if slot.LastChangedAt.Valid {
		slot.LastChangedAt.Time = slot.LastChangedAt.Time.In(time.UTC)
	}
}
