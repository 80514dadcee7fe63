package handler

import (
	"net/http"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"
	"yard_parking/internal/service"

	"github.com/gin-gonic/gin"
)

type AssignmentHandler struct {
	coordinator *service.AllocationCoordinator
	ledger      *service.AssignmentLedger
}

func NewAssignmentHandler(coordinator *service.AllocationCoordinator, ledger *service.AssignmentLedger) *AssignmentHandler {
	return &AssignmentHandler{coordinator: coordinator, ledger: ledger}
}

// POST /assignments
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var dto domain.AssignVehicleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		bindError(c, err)
		return
	}
	a, err := h.coordinator.Assign(c.Request.Context(), dto)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// DELETE /assignments/:id
func (h *AssignmentHandler) Unassign(c *gin.Context) {
	rec, err := h.coordinator.Unassign(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// PUT /assignments/:id/slot
func (h *AssignmentHandler) Reassign(c *gin.Context) {
	var dto domain.ReassignSlotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		bindError(c, err)
		return
	}
	a, err := h.coordinator.Reassign(c.Request.Context(), c.Param("id"), dto.SlotNumber)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GET /assignments/:id
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	a, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GET /assignments?vehicle_number=&slot_number=
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	var q domain.AssignmentFilterDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	out, err := h.ledger.List(c.Request.Context(), repository.AssignmentFilter{
		VehicleNumber: emptyToNil(q.VehicleNumber),
		SlotNumber:    emptyToNil(q.SlotNumber),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(out))
}

// GET /history?vehicle_number=&slot_number=
func (h *AssignmentHandler) ListHistory(c *gin.Context) {
	out, err := h.ledger.History(c.Request.Context(), repository.HistoryFilter{
		VehicleNumber: strPtr(c.Query("vehicle_number")),
		SlotNumber:    strPtr(c.Query("slot_number")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(out))
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	return strPtr(*s)
}
