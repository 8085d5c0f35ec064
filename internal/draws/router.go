package draws

import (
	"sorteo/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupDrawRoutes(rg *gin.RouterGroup, controller *Controller) {

	// PUBLIC DRAW READS

	draws := rg.Group("/draws")
	{
		draws.GET("/active", controller.GetActiveDraw) // GET /api/v1/draws/active
		draws.GET("/:drawId", controller.GetDraw)      // GET /api/v1/draws/:drawId
	}

	// OPERATOR LIFECYCLE

	adminDraws := rg.Group("/admin/draws")
	adminDraws.Use(middleware.JWTAuth(), middleware.RequireOperator())
	{
		adminDraws.POST("", controller.CreateDraw)                    // POST /api/v1/admin/draws
		adminDraws.POST("/:drawId/activate", controller.ActivateDraw) // POST /api/v1/admin/draws/:drawId/activate
		adminDraws.POST("/:drawId/winner", controller.SetWinner)      // POST /api/v1/admin/draws/:drawId/winner
		adminDraws.POST("/:drawId/cancel", controller.CancelDraw)     // POST /api/v1/admin/draws/:drawId/cancel
	}
}
