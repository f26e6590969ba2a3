// Package v1 provides REST API v1 handlers for the Match History component.
package v1

import (
	"strconv"

	"dustforce-relay/internal/module/history/application"
	"dustforce-relay/internal/shared/request"
	"dustforce-relay/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for match history.
type Handler struct {
	historyUseCase *application.UseCase
}

// NewHandler creates a new Match History HTTP handler.
func NewHandler(historyUseCase *application.UseCase) *Handler {
	return &Handler{historyUseCase: historyUseCase}
}

// GetHistory handles GET /api/lobbies/:id/history.
func (h *Handler) GetHistory(c *gin.Context) {
	lobbyID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, response.NewBadRequestError("invalid lobby id"))
		return
	}

	var listReq request.ListRequest
	if err := listReq.FromGinContext(c); err != nil {
		response.Error(c, err)
		return
	}
	if err := listReq.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	history, err := h.historyUseCase.GetHistory(c.Request.Context(), lobbyID, listReq.GetLimit(), listReq.GetOffset())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, history, "Match history retrieved successfully")
}

// RegisterProtectedRoutes mounts /lobbies/:id/history under a group
// already gated by admin auth middleware.
func (h *Handler) RegisterProtectedRoutes(router *gin.RouterGroup) {
	router.GET("/lobbies/:id/history", h.GetHistory)
}
