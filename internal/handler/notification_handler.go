package handler

import (
	"net/http"

	"neelgund-backend/internal/middleware"
	"neelgund-backend/internal/model"
	"neelgund-backend/internal/service"
	"neelgund-backend/pkg/pagination"
	"neelgund-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	agent := middleware.RequireRole(model.RoleAgent, model.RoleAdmin)

	router.GET("/api/notifications", agent, h.ListNotifications)
	router.PUT("/api/notifications/:id/read", agent, h.MarkRead)
	router.POST("/api/devices", agent, h.RegisterDevice)
}

// ListNotifications returns the caller's stored notifications, newest first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)
	params := pagination.Parse(c)

	items, total, err := h.notificationService.List(c.Request.Context(), userID, c.Query("unread") == "true", params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, items, total, params.Page, params.Limit))
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)
	if err := h.notificationService.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"read": true}))
}

// RegisterDevice stores an FCM token for push notifications
func (h *NotificationHandler) RegisterDevice(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	var req service.RegisterDeviceDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if err := h.notificationService.RegisterDevice(c.Request.Context(), userID, req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{"registered": true}))
}
