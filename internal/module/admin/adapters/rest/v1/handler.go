// Package v1 provides REST API v1 handlers for the admin module.
package v1

import (
	"dustforce-relay/internal/module/admin/application"
	"dustforce-relay/internal/shared/middleware"
	"dustforce-relay/internal/shared/response"
	"dustforce-relay/internal/shared/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for operator authentication against the
// admin API. It never sits in front of the lobby WebSocket gateway —
// players never see this handler.
type Handler struct {
	adminUseCase *application.UseCase
}

// NewHandler creates a new admin HTTP handler.
func NewHandler(adminUseCase *application.UseCase) *Handler {
	return &Handler{adminUseCase: adminUseCase}
}

// Register handles operator account provisioning.
func (h *Handler) Register(c *gin.Context) {
	var req application.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validator.Validate(req))
		return
	}

	if err := validator.Validate(req); err != nil {
		response.Error(c, err)
		return
	}

	operator, tokenPair, err := h.adminUseCase.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"operator": operator,
		"token":    tokenPair,
	}, "Operator registered successfully")
}

// Login handles operator login.
func (h *Handler) Login(c *gin.Context) {
	var req application.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validator.Validate(req))
		return
	}

	if err := validator.Validate(req); err != nil {
		response.Error(c, err)
		return
	}

	operator, tokenPair, err := h.adminUseCase.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"operator": operator,
		"token":    tokenPair,
	}, "Login successful")
}

// RefreshToken handles token refresh.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validator.Validate(req))
		return
	}

	if err := validator.Validate(req); err != nil {
		response.Error(c, err)
		return
	}

	tokenPair, err := h.adminUseCase.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"token": tokenPair}, "Token refreshed successfully")
}

// Me returns the authenticated operator's own account.
func (h *Handler) Me(c *gin.Context) {
	operatorID, ok := middleware.GetOperatorID(c)
	if !ok {
		response.Error(c, response.NewUnauthorizedError("operator id not found in context"))
		return
	}

	operator, err := h.adminUseCase.Me(c.Request.Context(), operatorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, operator, "Operator retrieved successfully")
}

// RegisterPublicRoutes registers public admin auth routes (no auth required).
func (h *Handler) RegisterPublicRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	{
		admin.POST("/register", h.Register)
		admin.POST("/login", h.Login)
		admin.POST("/refresh", h.RefreshToken)
	}
}

// RegisterProtectedRoutes registers protected admin routes (requires
// operator authentication). Lobby and round management routes are mounted
// under this same group by the broker/gateway wiring in cmd/server.
func (h *Handler) RegisterProtectedRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	{
		admin.GET("/me", h.Me)
	}
}
