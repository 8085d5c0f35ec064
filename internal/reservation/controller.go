package reservation

import (
	"net/http"

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

// NUMBER HOLDING (PURCHASE FLOW)

func (c *Controller) HoldNumbers(ctx *gin.Context) {
	var req HoldRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	result, err := c.service.HoldNumbers(ctx.Request.Context(), req)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to hold numbers", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Hold processed", result)
}

func (c *Controller) ConfirmNumbers(ctx *gin.Context) {
	var req ConfirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	result, err := c.service.ConfirmNumbers(ctx.Request.Context(), req)
	if err != nil {
		// Expired and denied confirmations carry the failed values back to
		// the buyer so the UI can prompt a re-hold
		response.RespondJSON(ctx, "error", apperrors.HTTPStatus(err), "Confirmation failed", result, err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Purchase confirmed", result)
}

func (c *Controller) ReleaseNumbers(ctx *gin.Context) {
	var req ReleaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	if err := c.service.ReleaseNumbers(ctx.Request.Context(), req); err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to release numbers", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Numbers released", nil)
}

// AVAILABILITY

func (c *Controller) GetOccupancy(ctx *gin.Context) {
	drawID := ctx.Param("drawId")
	if drawID == "" {
		response.Error(ctx, http.StatusBadRequest, "Draw ID is required", "missing draw ID")
		return
	}

	occ, err := c.service.GetOccupancy(ctx.Request.Context(), drawID)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to get occupancy", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Occupancy retrieved", occ)
}

// SweepExpired forces a sweep pass outside the background cadence.
func (c *Controller) SweepExpired(ctx *gin.Context) {
	drawID := ctx.Param("drawId")
	if drawID == "" {
		response.Error(ctx, http.StatusBadRequest, "Draw ID is required", "missing draw ID")
		return
	}

	released, err := c.service.SweepExpired(ctx.Request.Context(), drawID)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to sweep holds", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Sweep completed", gin.H{"released": released})
}

func (c *Controller) ListParticipants(ctx *gin.Context) {
	drawID := ctx.Param("drawId")
	if drawID == "" {
		response.Error(ctx, http.StatusBadRequest, "Draw ID is required", "missing draw ID")
		return
	}

	participants, err := c.service.ListParticipants(ctx.Request.Context(), drawID)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to list participants", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Participants retrieved", participants)
}
