package handler

import (
	"errors"
	"net/http"

	"neelgund-backend/internal/middleware"
	"neelgund-backend/internal/model"
	"neelgund-backend/internal/service"
	"neelgund-backend/pkg/pagination"
	"neelgund-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type WithdrawalHandler struct {
	withdrawalService service.WithdrawalService
	limiter           *middleware.RateLimiter
}

func NewWithdrawalHandler(withdrawalService service.WithdrawalService, limiter *middleware.RateLimiter) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalService: withdrawalService, limiter: limiter}
}

func (h *WithdrawalHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyone := middleware.RequireRole(model.RoleAgent, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	withdrawals := router.Group("/api/withdrawals")
	{
		withdrawals.POST("", middleware.RequireRole(model.RoleAgent), h.limiter.Limit(), h.RequestWithdrawal)
		withdrawals.GET("", anyone, h.ListWithdrawals)
		withdrawals.GET("/:id", anyone, h.GetWithdrawal)
		withdrawals.PUT("/:id/approve", admin, h.ApproveWithdrawal)
		withdrawals.PUT("/:id/reject", admin, h.RejectWithdrawal)
	}
}

// RequestWithdrawal godoc
// @Summary      Request a commission withdrawal
// @Description  Fails when the agent already has a pending request or asks for more than is available
// @Tags         withdrawals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RequestWithdrawalDTO  true  "Amount"
// @Success      201      {object}  response.Response{data=service.WithdrawalResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/withdrawals [post]
func (h *WithdrawalHandler) RequestWithdrawal(c *gin.Context) {
	var req service.RequestWithdrawalDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	req.AgentID, _ = middleware.CurrentUser(c)

	result, err := h.withdrawalService.Request(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListWithdrawals returns withdrawal requests; agents only see their own
func (h *WithdrawalHandler) ListWithdrawals(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.WithdrawalFilter{
		AgentID: c.Query("agent_id"),
		Status:  c.Query("status"),
		Page:    params.Page,
		Limit:   params.Limit,
	}
	if userID, role := middleware.CurrentUser(c); role == model.RoleAgent {
		filter.AgentID = userID
	}

	items, total, err := h.withdrawalService.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, items, total, params.Page, params.Limit))
}

func (h *WithdrawalHandler) GetWithdrawal(c *gin.Context) {
	result, err := h.withdrawalService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if userID, role := middleware.CurrentUser(c); role == model.RoleAgent && userID != result.AgentID {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ApproveWithdrawal godoc
// @Summary      Approve a withdrawal request
// @Description  Approving an already approved request is a no-op and still returns 200
// @Tags         withdrawals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Withdrawal ID"
// @Success      200  {object}  response.Response{data=service.WithdrawalResponse}
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/withdrawals/{id}/approve [put]
func (h *WithdrawalHandler) ApproveWithdrawal(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	result, err := h.withdrawalService.Approve(c.Request.Context(), c.Param("id"), userID)
	if err != nil && !errors.Is(err, service.ErrAlreadyApproved) {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RejectWithdrawal rejects a pending withdrawal request
func (h *WithdrawalHandler) RejectWithdrawal(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	var req service.RejectWithdrawalDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		// Reason is optional
		req.Reason = ""
	}

	result, err := h.withdrawalService.Reject(c.Request.Context(), c.Param("id"), userID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
