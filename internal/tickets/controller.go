package tickets

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

// holderRef ties tickets to the authenticated user
func holderRef(ctx *gin.Context) (string, bool) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		return "", false
	}
	ref, ok := userID.(string)
	return ref, ok && ref != ""
}

func (c *Controller) IssueBatch(ctx *gin.Context) {
	var req IssueBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}

	tickets, err := c.service.IssueBatch(ctx.Request.Context(), req)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to issue tickets", err.Error())
		return
	}

	response.Success(ctx, http.StatusCreated, "Tickets issued", tickets)
}

func (c *Controller) Scratch(ctx *gin.Context) {
	ref, ok := holderRef(ctx)
	if !ok {
		response.Error(ctx, http.StatusUnauthorized, "User not authenticated", "missing user context")
		return
	}

	result, err := c.service.Scratch(ctx.Request.Context(), ctx.Param("ticketId"), ref)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to scratch ticket", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Ticket scratched", result)
}

func (c *Controller) Claim(ctx *gin.Context) {
	ref, ok := holderRef(ctx)
	if !ok {
		response.Error(ctx, http.StatusUnauthorized, "User not authenticated", "missing user context")
		return
	}

	result, err := c.service.Claim(ctx.Request.Context(), ctx.Param("ticketId"), ref)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to claim prize", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Prize claimed", result)
}

func (c *Controller) ListMine(ctx *gin.Context) {
	ref, ok := holderRef(ctx)
	if !ok {
		response.Error(ctx, http.StatusUnauthorized, "User not authenticated", "missing user context")
		return
	}

	tickets, err := c.service.ListByHolder(ctx.Request.Context(), ref)
	if err != nil {
		response.Error(ctx, apperrors.HTTPStatus(err), "Failed to list tickets", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Tickets retrieved", tickets)
}
