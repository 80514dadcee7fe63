package handler

import (
	"errors"
	"net/http"

	"yard_parking/internal/service"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error onto a status code and JSON body. Partial failures are
// checked first since they unwrap to every item's cause.
func writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var partial *service.PartialFailureError
	switch {
	case errors.As(err, &partial):
		c.JSON(http.StatusBadGateway, gin.H{"error": "some items failed", "failed": partial.IDs()})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrValidationFailed.Error(), "fields": verr.Fields})
	case errors.Is(err, service.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrVehicleAlreadyAssigned),
		errors.Is(err, service.ErrSlotAlreadyAssigned),
		errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRemoteFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": "store unavailable", "details": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
	}
}

// bindError reports a malformed request body or query string.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
