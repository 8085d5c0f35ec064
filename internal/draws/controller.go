package draws

import (
	"net/http"

	"sorteo/internal/shared/apperrors"
	"sorteo/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// ADMIN LIFECYCLE

func (c *Controller) CreateDraw(ctx *gin.Context) {
	var req CreateDrawRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	userID, exists := ctx.Get("user_id")
	if !exists {
		response.Error(ctx, http.StatusUnauthorized, "User not authenticated", "missing user context")
		return
	}
	idStr, ok := userID.(string)
	if !ok {
		response.Error(ctx, http.StatusUnauthorized, "Invalid user ID", "malformed user context")
		return
	}
	createdBy, err := uuid.Parse(idStr)
	if err != nil {
		response.Error(ctx, http.StatusUnauthorized, "Invalid user ID", err.Error())
		return
	}

	draw, err := c.service.Create(ctx.Request.Context(), createdBy, req)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to create draw", err.Error())
		return
	}

	response.Success(ctx, http.StatusCreated, "Draw created", draw)
}

func (c *Controller) ActivateDraw(ctx *gin.Context) {
	drawID := ctx.Param("drawId")

	draw, err := c.service.Activate(ctx.Request.Context(), drawID)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to activate draw", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Draw activated", draw)
}

func (c *Controller) SetWinner(ctx *gin.Context) {
	drawID := ctx.Param("drawId")

	var req SetWinnerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	draw, err := c.service.SetWinner(ctx.Request.Context(), drawID, req)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to set winner", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Winner recorded, draw finished", draw)
}

func (c *Controller) CancelDraw(ctx *gin.Context) {
	drawID := ctx.Param("drawId")

	var req CancelDrawRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	draw, err := c.service.Cancel(ctx.Request.Context(), drawID, req)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to cancel draw", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Draw cancelled", draw)
}

// PUBLIC READS

func (c *Controller) GetDraw(ctx *gin.Context) {
	drawID := ctx.Param("drawId")

	draw, err := c.service.GetDraw(ctx.Request.Context(), drawID)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to get draw", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Draw retrieved", draw)
}

func (c *Controller) GetActiveDraw(ctx *gin.Context) {
	draw, err := c.service.GetActiveDraw(ctx.Request.Context())
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "No active draw", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Active draw retrieved", draw)
}
