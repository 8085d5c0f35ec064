package reservation

import (
	"sorteo/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupReservationRoutes(rg *gin.RouterGroup, controller *Controller) {

	// BUYER NUMBER OPERATIONS

	numbers := rg.Group("/numbers")
	numbers.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleBuyer, middleware.RoleOperator))
	{
		// Core purchase flow
		numbers.POST("/hold", controller.HoldNumbers)       // POST /api/v1/numbers/hold
		numbers.POST("/confirm", controller.ConfirmNumbers) // POST /api/v1/numbers/confirm
		numbers.POST("/release", controller.ReleaseNumbers) // POST /api/v1/numbers/release
	}

	// PUBLIC AVAILABILITY

	draws := rg.Group("/draws")
	{
		draws.GET("/:drawId/occupancy", controller.GetOccupancy) // GET /api/v1/draws/:drawId/occupancy
	}

	// OPERATOR VIEWS

	adminDraws := rg.Group("/admin/draws")
	adminDraws.Use(middleware.JWTAuth(), middleware.RequireOperator())
	{
		adminDraws.GET("/:drawId/participants", controller.ListParticipants) // GET  /api/v1/admin/draws/:drawId/participants
		adminDraws.POST("/:drawId/sweep", controller.SweepExpired)           // POST /api/v1/admin/draws/:drawId/sweep
	}
}
