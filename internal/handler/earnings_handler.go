package handler

import (
	"net/http"
	"strconv"

	"neelgund-backend/internal/middleware"
	"neelgund-backend/internal/model"
	"neelgund-backend/internal/service"
	"neelgund-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type EarningsHandler struct {
	earningsService service.EarningsService
}

func NewEarningsHandler(earningsService service.EarningsService) *EarningsHandler {
	return &EarningsHandler{earningsService: earningsService}
}

func (h *EarningsHandler) RegisterRoutes(router *gin.RouterGroup) {
	earnings := router.Group("/api/earnings")
	{
		earnings.GET("/me", middleware.RequireRole(model.RoleAgent), h.MyEarnings)
		earnings.GET("/top", middleware.RequireRole(model.RoleAgent, model.RoleAdmin), h.TopAgents)
		earnings.GET("/agents/:agentId", middleware.RequireRole(model.RoleAdmin), h.AgentEarnings)
	}
}

// MyEarnings godoc
// @Summary      Commission summary of the signed-in agent
// @Tags         earnings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.EarningsSummary}
// @Router       /api/earnings/me [get]
func (h *EarningsHandler) MyEarnings(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)
	h.summary(c, userID)
}

func (h *EarningsHandler) AgentEarnings(c *gin.Context) {
	h.summary(c, c.Param("agentId"))
}

func (h *EarningsHandler) summary(c *gin.Context, agentID string) {
	result, err := h.earningsService.Summary(c.Request.Context(), agentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// TopAgents returns the leaderboard by total commission
func (h *EarningsHandler) TopAgents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	result, err := h.earningsService.TopAgents(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
