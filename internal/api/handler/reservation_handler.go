package handler

import (
	"errors"
	"net/http"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"
	"yard_parking/internal/service"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	reconciler  *service.ReservationReconciler
	coordinator *service.AllocationCoordinator
}

func NewReservationHandler(reconciler *service.ReservationReconciler, coordinator *service.AllocationCoordinator) *ReservationHandler {
	return &ReservationHandler{reconciler: reconciler, coordinator: coordinator}
}

// POST /reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var dto domain.ReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.reconciler.Create(c.Request.Context(), dto)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /reservations?slot_number=&reserve_date=
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	var q domain.ReservationFilterDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	out, err := h.reconciler.List(c.Request.Context(), repository.ReservationFilter{
		SlotNumber:  emptyToNil(q.SlotNumber),
		ReserveDate: emptyToNil(q.ReserveDate),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(out))
}

// GET /reservations/count
func (h *ReservationHandler) CountReservations(c *gin.Context) {
	n, err := h.reconciler.PendingCount(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// GET /reservations/:id
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	res, err := h.reconciler.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /reservations/:id/assign
func (h *ReservationHandler) AssignFromReservation(c *gin.Context) {
	a, err := h.coordinator.AssignFromReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// POST /reservations/reject
func (h *ReservationHandler) RejectReservations(c *gin.Context) {
	var dto domain.RejectReservationsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		bindError(c, err)
		return
	}
	result, err := h.coordinator.RejectReservations(c.Request.Context(), dto.IDs)
	var partial *service.PartialFailureError
	if errors.As(err, &partial) && result != nil {
		// 207: the body lists what was removed next to what failed.
		c.JSON(http.StatusMultiStatus, result)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
