package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// DateLayout is the calendar-date format reservations are stored and compared in.
const DateLayout = "2006-01-02"

// Reservation is a future-dated intent to occupy a slot. The vehicle fields are copied into the
// Assignment when the reservation is converted; intake may leave them empty.
type Reservation struct {
	ID            string      `json:"id"`
	SlotNumber    string      `json:"slot_number"`
	ReserveDate   string      `json:"reserve_date"`
	VehicleNumber null.String `json:"vehicle_number"`
	DriverName    null.String `json:"driver_name"`
	PhoneNumber   null.String `json:"phone_number"`
	TransportType null.String `json:"transport_type"`
	CreatedAt     time.Time   `json:"created_at"`
}

type ReservationDTO struct {
	SlotNumber    string `json:"slot_number" binding:"required"`
	ReserveDate   string `json:"reserve_date" binding:"required"`
	VehicleNumber string `json:"vehicle_number"`
	DriverName    string `json:"driver_name"`
	PhoneNumber   string `json:"phone_number"`
	TransportType string `json:"transport_type"`
}

type RejectReservationsDTO struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

type ReservationFilterDTO struct {
	SlotNumber  *string `form:"slot_number"`
	ReserveDate *string `form:"reserve_date"`
}

// AssignInput builds the Assign input carried by the reservation.
func (r Reservation) AssignInput() AssignVehicleDTO {
	return AssignVehicleDTO{
		VehicleNumber: r.VehicleNumber.String,
		DriverName:    r.DriverName.String,
		PhoneNumber:   r.PhoneNumber.String,
		TransportType: r.TransportType.String,
		SlotNumber:    r.SlotNumber,
	}
}
