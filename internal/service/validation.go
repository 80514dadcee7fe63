package service

import (
	"regexp"
	"strings"
	"time"

	"yard_parking/internal/domain"
)

var (
	vehicleNumberPattern = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z]{2}\d{4}$`)
	phoneNumberPattern   = regexp.MustCompile(`^\d{10}$`)
)

const minDriverNameLen = 4

func normalizeAssignInput(in domain.AssignVehicleDTO) domain.AssignVehicleDTO {
	in.VehicleNumber = strings.TrimSpace(in.VehicleNumber)
	in.DriverName = strings.TrimSpace(in.DriverName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.TransportType = strings.TrimSpace(in.TransportType)
	in.SlotNumber = strings.TrimSpace(in.SlotNumber)
	return in
}

// validateAssignInput checks the shape of an assignment request. It never touches the store.
func validateAssignInput(in domain.AssignVehicleDTO) error {
	v := &ValidationError{}
	if !vehicleNumberPattern.MatchString(in.VehicleNumber) {
		v.add("vehicle_number", "must look like AP12BG1234")
	}
	if len([]rune(in.DriverName)) < minDriverNameLen {
		v.add("driver_name", "must be at least 4 characters")
	}
	if !phoneNumberPattern.MatchString(in.PhoneNumber) {
		v.add("phone_number", "must be exactly 10 digits")
	}
	if !domain.TransportType(in.TransportType).Valid() {
		v.add("transport_type", "must be Inward or Outward")
	}
	if in.SlotNumber == "" {
		v.add("slot_number", "is required")
	}
	return v.orNil()
}

func validateSlotNumber(slotNumber string) error {
	if strings.TrimSpace(slotNumber) == "" {
		v := &ValidationError{}
		v.add("slot_number", "is required")
		return v
	}
	return nil
}

func validateReservation(dto domain.ReservationDTO) error {
	v := &ValidationError{}
	if strings.TrimSpace(dto.SlotNumber) == "" {
		v.add("slot_number", "is required")
	}
	if _, err := time.Parse(domain.DateLayout, dto.ReserveDate); err != nil {
		v.add("reserve_date", "must be a YYYY-MM-DD date")
	}
	if dto.VehicleNumber != "" && !vehicleNumberPattern.MatchString(dto.VehicleNumber) {
		v.add("vehicle_number", "must look like AP12BG1234")
	}
	if dto.DriverName != "" && len([]rune(dto.DriverName)) < minDriverNameLen {
		v.add("driver_name", "must be at least 4 characters")
	}
	if dto.PhoneNumber != "" && !phoneNumberPattern.MatchString(dto.PhoneNumber) {
		v.add("phone_number", "must be exactly 10 digits")
	}
	if dto.TransportType != "" && !domain.TransportType(dto.TransportType).Valid() {
		v.add("transport_type", "must be Inward or Outward")
	}
	return v.orNil()
}
