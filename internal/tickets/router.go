package tickets

import (
	"sorteo/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupTicketRoutes(rg *gin.RouterGroup, controller *Controller) {

	// BUYER SCRATCH & CLAIM

	tickets := rg.Group("/tickets")
	tickets.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleBuyer, middleware.RoleOperator))
	{
		tickets.GET("", controller.ListMine)                   // GET  /api/v1/tickets
		tickets.POST("/:ticketId/scratch", controller.Scratch) // POST /api/v1/tickets/:ticketId/scratch
		tickets.POST("/:ticketId/claim", controller.Claim)     // POST /api/v1/tickets/:ticketId/claim
	}

	// OPERATOR ISSUANCE

	adminTickets := rg.Group("/admin/tickets")
	adminTickets.Use(middleware.JWTAuth(), middleware.RequireOperator())
	{
		adminTickets.POST("", controller.IssueBatch) // POST /api/v1/admin/tickets
	}
}
