package api

import (
	"net/http"

	"yard_parking/internal/api/handler"
	"yard_parking/internal/api/middleware"
	"yard_parking/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter builds the HTTP surface. wsManager and gatherer are optional.
func SetupRouter(yard *service.Yard, wsManager *handler.WebSocketManager, gatherer prometheus.Gatherer, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if wsManager != nil {
		wsHandler := handler.NewWebSocketHandler(wsManager)
		r.GET("/ws", wsHandler.HandleWebSocket)
	}

	v1 := r.Group("/api/v1")
	{
		slotH := handler.NewSlotHandler(yard.Registry)
		slotRoutes := v1.Group("/slots")
		{
			slotRoutes.GET("", slotH.ListSlots)
			slotRoutes.POST("", slotH.CreateSlot)
			slotRoutes.GET("/available", slotH.ListAvailable)
			slotRoutes.GET("/stats", slotH.GetStats)
			slotRoutes.GET("/:slot_number", slotH.GetSlot)
		}

		assignH := handler.NewAssignmentHandler(yard.Coordinator, yard.Ledger)
		assignRoutes := v1.Group("/assignments")
		{
			assignRoutes.GET("", assignH.ListAssignments)
			assignRoutes.POST("", assignH.Assign)
			assignRoutes.GET("/:id", assignH.GetAssignment)
			assignRoutes.DELETE("/:id", assignH.Unassign)
			assignRoutes.PUT("/:id/slot", assignH.Reassign)
		}
		v1.GET("/history", assignH.ListHistory)

		resH := handler.NewReservationHandler(yard.Reconciler, yard.Coordinator)
		resRoutes := v1.Group("/reservations")
		{
			resRoutes.GET("", resH.ListReservations)
			resRoutes.POST("", resH.CreateReservation)
			resRoutes.GET("/count", resH.CountReservations)
			resRoutes.POST("/reject", resH.RejectReservations)
			resRoutes.GET("/:id", resH.GetReservation)
			resRoutes.POST("/:id/assign", resH.AssignFromReservation)
		}

		opsH := handler.NewOpsHandler(yard.Reconciler, yard.Healer, yard.Calendar)
		v1.POST("/reconcile", opsH.Reconcile)
		v1.POST("/heal", opsH.Heal)
	}
	return r
}
