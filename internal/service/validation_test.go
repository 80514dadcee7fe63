package service

import (
	"testing"
	"time"

	"yard_parking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAssignInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.AssignVehicleDTO)
		fields []string
	}{
		{"valid", func(*domain.AssignVehicleDTO) {}, nil},
		{"lowercase plate", func(in *domain.AssignVehicleDTO) { in.VehicleNumber = "ap12bg1234" }, []string{"vehicle_number"}},
		{"short plate", func(in *domain.AssignVehicleDTO) { in.VehicleNumber = "AP12B1234" }, []string{"vehicle_number"}},
		{"short driver name", func(in *domain.AssignVehicleDTO) { in.DriverName = "Ravi" }, nil},
		{"too short driver name", func(in *domain.AssignVehicleDTO) { in.DriverName = "Rav" }, []string{"driver_name"}},
		{"five digit phone", func(in *domain.AssignVehicleDTO) { in.PhoneNumber = "98765" }, []string{"phone_number"}},
		{"phone with letters", func(in *domain.AssignVehicleDTO) { in.PhoneNumber = "98765abcde" }, []string{"phone_number"}},
		{"unknown transport", func(in *domain.AssignVehicleDTO) { in.TransportType = "Sideways" }, []string{"transport_type"}},
		{"no slot", func(in *domain.AssignVehicleDTO) { in.SlotNumber = "" }, []string{"slot_number"}},
		{"everything wrong", func(in *domain.AssignVehicleDTO) { *in = domain.AssignVehicleDTO{} },
			[]string{"vehicle_number", "driver_name", "phone_number", "transport_type", "slot_number"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := raviInput("A1")
			tt.mutate(&in)
			err := validateAssignInput(normalizeAssignInput(in))
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, ErrValidationFailed)
			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestCalendarToday(t *testing.T) {
	// 20:00 UTC on the 18th is already the 19th in the yard.
	cal := Calendar{Location: yardZone, Clock: func() time.Time { return time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC) }}
	assert.Equal(t, "2026-10-19", cal.Today())
	assert.Equal(t, time.UTC, cal.Now().Location())

	assert.Equal(t, "2026-10-18", Calendar{Clock: cal.Clock}.Today())
}
