package history

import (
	"github.com/gin-gonic/gin"
)

func SetupHistoryRoutes(rg *gin.RouterGroup, controller *Controller) {

	// PUBLIC ARCHIVE READS

	history := rg.Group("/history")
	{
		history.GET("", controller.ListHistory)            // GET /api/v1/history
		history.GET("/:drawId", controller.GetDrawHistory) // GET /api/v1/history/:drawId
	}
}
