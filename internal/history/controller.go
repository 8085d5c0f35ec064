package history

import (
	"net/http"
	"strconv"

	"sorteo/internal/shared/apperrors"
	"sorteo/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) ListHistory(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	list, err := c.service.ListHistory(ctx.Request.Context(), limit, offset)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to list history", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "History retrieved", list)
}

func (c *Controller) GetDrawHistory(ctx *gin.Context) {
	drawID := ctx.Param("drawId")

	entry, err := c.service.GetDrawHistory(ctx.Request.Context(), drawID)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to get draw history", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Draw history retrieved", entry)
}
