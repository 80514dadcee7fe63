package handler

import (
	"net/http"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"
	"yard_parking/internal/service"

	"github.com/gin-gonic/gin"
)

type SlotHandler struct {
	registry *service.SlotRegistry
}

func NewSlotHandler(registry *service.SlotRegistry) *SlotHandler {
	return &SlotHandler{registry: registry}
}

// POST /slots
func (h *SlotHandler) CreateSlot(c *gin.Context) {
	var dto domain.SlotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		bindError(c, err)
		return
	}
	slot, err := h.registry.Provision(c.Request.Context(), dto)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// GET /slots
func (h *SlotHandler) ListSlots(c *gin.Context) {
	var q domain.SlotFilterDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	var filter repository.SlotFilter
	if q.Status != nil && *q.Status != "" {
		status := domain.SlotStatus(*q.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be Available, Occupied or Reserved"})
			return
		}
		filter.Status = &status
	}
	if q.TransportType != nil && *q.TransportType != "" {
		tt := domain.TransportType(*q.TransportType)
		if !tt.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "transport_type must be Inward or Outward"})
			return
		}
		filter.TransportType = &tt
	}

	slots, err := h.registry.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(slots))
}

// GET /slots/available?transport_type=Inward
func (h *SlotHandler) ListAvailable(c *gin.Context) {
	tt := domain.TransportType(c.Query("transport_type"))
	slots := []domain.Slot{}
	for slot, err := range h.registry.ListAvailable(c.Request.Context(), tt) {
		if err != nil {
			writeError(c, err)
			return
		}
		slots = append(slots, slot)
	}
	c.JSON(http.StatusOK, slots)
}

// GET /slots/stats
func (h *SlotHandler) GetStats(c *gin.Context) {
	stats, err := h.registry.Counts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /slots/:slot_number
func (h *SlotHandler) GetSlot(c *gin.Context) {
	slot, err := h.registry.Get(c.Request.Context(), c.Param("slot_number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
