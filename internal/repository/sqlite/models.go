package sqlite

import (
	"time"

	"yard_parking/internal/domain"

	"gopkg.in/guregu/null.v4"
)

type slotRow struct {
	SlotNumber    string `gorm:"primaryKey;size:32"`
	TransportType string `gorm:"size:16;not null;index"`
	Status        string `gorm:"size:16;not null;index"`
	LastChangedAt *time.Time
	CreatedAt     time.Time
}

func (slotRow) TableName() string { return "slots" }

func (r slotRow) toDomain() domain.Slot {
	return domain.Slot{
		SlotNumber:    r.SlotNumber,
		TransportType: domain.TransportType(r.TransportType),
		Status:        domain.SlotStatus(r.Status),
		LastChangedAt: utcTime(r.LastChangedAt),
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

// The named unique indexes are what make assignment writes conditional.
type assignmentRow struct {
	ID            string    `gorm:"primaryKey;size:36"`
	SlotNumber    string    `gorm:"size:32;not null;uniqueIndex:assignments_slot_number_key"`
	VehicleNumber string    `gorm:"size:16;not null;uniqueIndex:assignments_vehicle_number_key"`
	DriverName    string    `gorm:"not null"`
	PhoneNumber   string    `gorm:"size:10;not null"`
	TransportType string    `gorm:"size:16;not null"`
	CheckInTime   time.Time `gorm:"not null"`
}

func (assignmentRow) TableName() string { return "assignments" }

func newAssignmentRow(a *domain.Assignment) assignmentRow {
	return assignmentRow{
		ID:            a.ID,
		SlotNumber:    a.SlotNumber,
		VehicleNumber: a.VehicleNumber,
		DriverName:    a.DriverName,
		PhoneNumber:   a.PhoneNumber,
		TransportType: string(a.TransportType),
		CheckInTime:   a.CheckInTime,
	}
}

func (r assignmentRow) toDomain() domain.Assignment {
	return domain.Assignment{
		ID:            r.ID,
		SlotNumber:    r.SlotNumber,
		VehicleNumber: r.VehicleNumber,
		DriverName:    r.DriverName,
		PhoneNumber:   r.PhoneNumber,
		TransportType: domain.TransportType(r.TransportType),
		CheckInTime:   r.CheckInTime.UTC(),
	}
}

type historyRow struct {
	ID            string    `gorm:"primaryKey;size:36"`
	SlotNumber    string    `gorm:"size:32;not null;index"`
	VehicleNumber string    `gorm:"size:16;not null;index"`
	DriverName    string    `gorm:"not null"`
	PhoneNumber   string    `gorm:"size:10;not null"`
	TransportType string    `gorm:"size:16;not null"`
	CheckInTime   time.Time `gorm:"not null"`
	CheckOutTime  time.Time `gorm:"not null"`
}

func (historyRow) TableName() string { return "history" }

func (r historyRow) toDomain() domain.HistoryRecord {
	return domain.HistoryRecord{
		ID:            r.ID,
		SlotNumber:    r.SlotNumber,
		VehicleNumber: r.VehicleNumber,
		DriverName:    r.DriverName,
		PhoneNumber:   r.PhoneNumber,
		TransportType: domain.TransportType(r.TransportType),
		CheckInTime:   r.CheckInTime.UTC(),
		CheckOutTime:  r.CheckOutTime.UTC(),
	}
}

type reservationRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	SlotNumber    string `gorm:"size:32;not null;index"`
	ReserveDate   string `gorm:"size:10;not null;index"`
	VehicleNumber *string
	DriverName    *string
	PhoneNumber   *string
	TransportType *string
	CreatedAt     time.Time
}

func (reservationRow) TableName() string { return "reservations" }

func newReservationRow(r *domain.Reservation) reservationRow {
	return reservationRow{
		ID:            r.ID,
		SlotNumber:    r.SlotNumber,
		ReserveDate:   r.ReserveDate,
		VehicleNumber: r.VehicleNumber.Ptr(),
		DriverName:    r.DriverName.Ptr(),
		PhoneNumber:   r.PhoneNumber.Ptr(),
		TransportType: r.TransportType.Ptr(),
		CreatedAt:     r.CreatedAt,
	}
}

func (r reservationRow) toDomain() domain.Reservation {
	return domain.Reservation{
		ID:            r.ID,
		SlotNumber:    r.SlotNumber,
		ReserveDate:   r.ReserveDate,
		VehicleNumber: null.StringFromPtr(r.VehicleNumber),
		DriverName:    null.StringFromPtr(r.DriverName),
		PhoneNumber:   null.StringFromPtr(r.PhoneNumber),
		TransportType: null.StringFromPtr(r.TransportType),
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

func utcTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}
