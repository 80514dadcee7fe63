// Package sqlite is the embedded single-node store, built on GORM with the SQLite driver.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"

	sqlitedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (or creates) the SQLite database at path and migrates it.
// Use ":memory:" for a throwaway store.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlitedriver.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: pool: %w", err)
	}
	// One connection: SQLite has a single writer, and each ":memory:" connection is its own database.
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the yard tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&slotRow{}, &assignmentRow{}, &historyRow{}, &reservationRow{}); err != nil {
		return fmt.Errorf("sqlite: auto-migrate: %w", err)
	}
	return nil
}

func NewStore(db *gorm.DB) *repository.Store {
	return &repository.Store{
		Slots:        &slotRepository{db: db},
		Assignments:  &assignmentRepository{db: db},
		History:      &historyRepository{db: db},
		Reservations: &reservationRepository{db: db},
	}
}

// uniqueColumn returns "table.column" from SQLite's "UNIQUE constraint failed" message.
func uniqueColumn(err error) (string, bool) {
	const marker = "UNIQUE constraint failed: "
	msg := err.Error()
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(msg[i+len(marker):]), true
}

func assignmentConflict(err error) error {
	column, ok := uniqueColumn(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(column, "vehicle_number"):
		return repository.ErrVehicleTaken
	case strings.Contains(column, "slot_number"):
		return repository.ErrSlotTaken
	}
	return repository.ErrDuplicateEntry
}

type slotRepository struct {
	db *gorm.DB
}

func (r *slotRepository) Create(ctx context.Context, slot *domain.Slot) (*domain.Slot, error) {
	row := slotRow{
		SlotNumber:    slot.SlotNumber,
		TransportType: string(slot.TransportType),
		Status:        string(slot.Status),
		CreatedAt:     slot.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if _, ok := uniqueColumn(err); ok {
			return nil, fmt.Errorf("%w: slot %q", repository.ErrDuplicateEntry, slot.SlotNumber)
		}
		return nil, fmt.Errorf("SlotRepository.Create: %w", err)
	}
	slot.CreatedAt = row.CreatedAt.UTC()
	return slot, nil
}

func (r *slotRepository) FindByNumber(ctx context.Context, slotNumber string) (*domain.Slot, error) {
	var row slotRow
	if err := r.db.WithContext(ctx).Where("slot_number = ?", slotNumber).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SlotRepository.FindByNumber: %w", err)
	}
	slot := row.toDomain()
	return &slot, nil
}

func (r *slotRepository) Find(ctx context.Context, filter repository.SlotFilter) ([]domain.Slot, error) {
	q := r.db.WithContext(ctx).Model(&slotRow{})
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	if filter.TransportType != nil {
		q = q.Where("transport_type = ?", string(*filter.TransportType))
	}

	var rows []slotRow
	if err := q.Order("slot_number").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("SlotRepository.Find: %w", err)
	}
	slots := make([]domain.Slot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, row.toDomain())
	}
	return slots, nil
}

func (r *slotRepository) UpdateStatus(ctx context.Context, slotNumber string, status domain.SlotStatus) error {
	result := r.db.WithContext(ctx).Model(&slotRow{}).
		Where("slot_number = ?", slotNumber).
		Updates(map[string]any{"status": string(status), "last_changed_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("SlotRepository.UpdateStatus: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type assignmentRepository struct {
	db *gorm.DB
}

func (r *assignmentRepository) Create(ctx context.Context, a *domain.Assignment) (*domain.Assignment, error) {
	row := newAssignmentRow(a)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if conflict := assignmentConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("AssignmentRepository.Create: %w", err)
	}
	return a, nil
}

func (r *assignmentRepository) FindByID(ctx context.Context, id string) (*domain.Assignment, error) {
	var row assignmentRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("AssignmentRepository.FindByID: %w", err)
	}
	a := row.toDomain()
	return &a, nil
}

func (r *assignmentRepository) Find(ctx context.Context, filter repository.AssignmentFilter) ([]domain.Assignment, error) {
	q := r.db.WithContext(ctx).Model(&assignmentRow{})
	if filter.VehicleNumber != nil {
		q = q.Where("vehicle_number = ?", *filter.VehicleNumber)
	}
	if filter.SlotNumber != nil {
		q = q.Where("slot_number = ?", *filter.SlotNumber)
	}

	var rows []assignmentRow
	if err := q.Order("check_in_time").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("AssignmentRepository.Find: %w", err)
	}
	out := make([]domain.Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *assignmentRepository) UpdateSlot(ctx context.Context, id string, slotNumber string) error {
	result := r.db.WithContext(ctx).Model(&assignmentRow{}).Where("id = ?", id).Update("slot_number", slotNumber)
	if result.Error != nil {
		if conflict := assignmentConflict(result.Error); conflict != nil {
			return conflict
		}
		return fmt.Errorf("AssignmentRepository.UpdateSlot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *assignmentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&assignmentRow{})
	if result.Error != nil {
		return fmt.Errorf("AssignmentRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type historyRepository struct {
	db *gorm.DB
}

func (r *historyRepository) Create(ctx context.Context, rec *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	row := historyRow{
		ID:            rec.ID,
		SlotNumber:    rec.SlotNumber,
		VehicleNumber: rec.VehicleNumber,
		DriverName:    rec.DriverName,
		PhoneNumber:   rec.PhoneNumber,
		TransportType: string(rec.TransportType),
		CheckInTime:   rec.CheckInTime,
		CheckOutTime:  rec.CheckOutTime,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if _, ok := uniqueColumn(err); ok {
			return nil, fmt.Errorf("%w: history record %q", repository.ErrDuplicateEntry, rec.ID)
		}
		return nil, fmt.Errorf("HistoryRepository.Create: %w", err)
	}
	return rec, nil
}

func (r *historyRepository) Find(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryRecord, error) {
	q := r.db.WithContext(ctx).Model(&historyRow{})
	if filter.VehicleNumber != nil {
		q = q.Where("vehicle_number = ?", *filter.VehicleNumber)
	}
	if filter.SlotNumber != nil {
		q = q.Where("slot_number = ?", *filter.SlotNumber)
	}

	var rows []historyRow
	if err := q.Order("check_out_time DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("HistoryRepository.Find: %w", err)
	}
	out := make([]domain.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

type reservationRepository struct {
	db *gorm.DB
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	row := newReservationRow(res)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if _, ok := uniqueColumn(err); ok {
			return nil, fmt.Errorf("%w: reservation %q", repository.ErrDuplicateEntry, res.ID)
		}
		return nil, fmt.Errorf("ReservationRepository.Create: %w", err)
	}
	res.CreatedAt = row.CreatedAt.UTC()
	return res, nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	var row reservationRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	res := row.toDomain()
	return &res, nil
}

func (r *reservationRepository) Find(ctx context.Context, filter repository.ReservationFilter) ([]domain.Reservation, error) {
	q := r.db.WithContext(ctx).Model(&reservationRow{})
	if filter.SlotNumber != nil {
		q = q.Where("slot_number = ?", *filter.SlotNumber)
	}
	if filter.ReserveDate != nil {
		q = q.Where("reserve_date = ?", *filter.ReserveDate)
	}

	var rows []reservationRow
	if err := q.Order("reserve_date").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find: %w", err)
	}
	out := make([]domain.Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *reservationRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&reservationRow{})
	if result.Error != nil {
		return fmt.Errorf("ReservationRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
