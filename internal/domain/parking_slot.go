package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SlotStatus string

const (
	StatusAvailable SlotStatus = "Available"
	StatusOccupied  SlotStatus = "Occupied"
	StatusReserved  SlotStatus = "Reserved"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusReserved:
		return true
	}
	return false
}

// TransportType decides which vehicles a slot may hold. It is fixed when the slot is provisioned.
type TransportType string

const (
	TransportInward  TransportType = "Inward"
	TransportOutward TransportType = "Outward"
)

func (t TransportType) Valid() bool {
	return t == TransportInward || t == TransportOutward
}

type Slot struct {
	SlotNumber    string        `json:"slot_number"`
	TransportType TransportType `json:"transport_type"`
	Status        SlotStatus    `json:"status"`
	LastChangedAt null.Time     `json:"last_changed_at"`
	CreatedAt     time.Time     `json:"created_at"`
}

type SlotDTO struct {
	SlotNumber    string `json:"slot_number" binding:"required"`
	TransportType string `json:"transport_type" binding:"required"`
}

type SlotFilterDTO struct {
	Status        *string `form:"status"`
	TransportType *string `form:"transport_type"`
}

// SlotStats mirrors the yard overview chart: one count per status.
type SlotStats struct {
	Available int `json:"available"`
	Occupied  int `json:"occupied"`
	Reserved  int `json:"reserved"`
	Total     int `json:"total"`
}
