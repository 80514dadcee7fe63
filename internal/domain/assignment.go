package domain

import "time"

// Assignment is a live binding of one vehicle to one slot.
type Assignment struct {
	ID            string        `json:"id"`
	SlotNumber    string        `json:"slot_number"`
	VehicleNumber string        `json:"vehicle_number"`
	DriverName    string        `json:"driver_name"`
	PhoneNumber   string        `json:"phone_number"`
	TransportType TransportType `json:"transport_type"`
	CheckInTime   time.Time     `json:"check_in_time"`
}

// HistoryRecord is the closed-out copy of an Assignment and carries its ID, so each Assignment
// retires into at most one record. Never updated after creation.
type HistoryRecord struct {
	ID            string        `json:"id"`
	SlotNumber    string        `json:"slot_number"`
	VehicleNumber string        `json:"vehicle_number"`
	DriverName    string        `json:"driver_name"`
	PhoneNumber   string        `json:"phone_number"`
	TransportType TransportType `json:"transport_type"`
	CheckInTime   time.Time     `json:"check_in_time"`
	CheckOutTime  time.Time     `json:"check_out_time"`
}

// AssignVehicleDTO carries the operator's input for Assign.
type AssignVehicleDTO struct {
	VehicleNumber string `json:"vehicle_number"`
	DriverName    string `json:"driver_name"`
	PhoneNumber   string `json:"phone_number"`
	TransportType string `json:"transport_type"`
	SlotNumber    string `json:"slot_number"`
}

type ReassignSlotDTO struct {
	SlotNumber string `json:"slot_number" binding:"required"`
}

type AssignmentFilterDTO struct {
	VehicleNumber *string `form:"vehicle_number"`
	SlotNumber    *string `form:"slot_number"`
}
