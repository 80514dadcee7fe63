package handler

import (
	"net/http"
	"time"

	"yard_parking/internal/domain"
	"yard_parking/internal/service"

	"github.com/gin-gonic/gin"
)

// OpsHandler exposes the sweeps the scheduler runs, for operators who need them now.
type OpsHandler struct {
	reconciler *service.ReservationReconciler
	healer     *service.SlotHealer
	calendar   service.Calendar
}

func NewOpsHandler(reconciler *service.ReservationReconciler, healer *service.SlotHealer, calendar service.Calendar) *OpsHandler {
	return &OpsHandler{reconciler: reconciler, healer: healer, calendar: calendar}
}

// POST /reconcile?date=YYYY-MM-DD
func (h *OpsHandler) Reconcile(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	n, err := h.reconciler.ReconcileToday(c.Request.Context(), date)
	h.sweepResult(c, date, n, err)
}

// POST /heal
func (h *OpsHandler) Heal(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	n, err := h.healer.Heal(c.Request.Context(), date)
	h.sweepResult(c, date, n, err)
}

func (h *OpsHandler) date(c *gin.Context) (string, bool) {
	date := c.DefaultQuery("date", h.calendar.Today())
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return "", false
	}
	return date, true
}

// sweepResult reports the slots changed even when some of them failed.
func (h *OpsHandler) sweepResult(c *gin.Context, date string, changed int, err error) {
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"date": date, "changed": changed, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "changed": changed})
}
