package domain

import "time"

// SlotStatusChange is pushed to live dashboards and yard display boards after a status write.
type SlotStatusChange struct {
	SlotNumber    string        `json:"slot_number"`
	TransportType TransportType `json:"transport_type"`
	From          SlotStatus    `json:"from"`
	To            SlotStatus    `json:"to"`
	Source        string        `json:"source"`
	Timestamp     time.Time     `json:"timestamp"`
}

// AssignmentNotice is what the driver is told once a slot is assigned.
type AssignmentNotice struct {
	DriverName    string `json:"driver_name"`
	PhoneNumber   string `json:"phone_number"`
	VehicleNumber string `json:"vehicle_number"`
	SlotNumber    string `json:"slot_number"`
}

// AssignmentReceipt is the printable slip handed over at the gate.
type AssignmentReceipt struct {
	AssignmentID  string        `json:"assignment_id"`
	VehicleNumber string        `json:"vehicle_number"`
	DriverName    string        `json:"driver_name"`
	PhoneNumber   string        `json:"phone_number"`
	TransportType TransportType `json:"transport_type"`
	SlotNumber    string        `json:"slot_number"`
	IssuedAt      time.Time     `json:"issued_at"`
}
