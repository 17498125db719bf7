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

type AssignmentHandler struct {
	assignmentService service.AssignmentService
}

func NewAssignmentHandler(assignmentService service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

func (h *AssignmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyone := middleware.RequireRole(model.RoleAgent, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	assignments := router.Group("/api/assignments")
	{
		assignments.POST("", anyone, h.AssignPlot)
		assignments.GET("", anyone, h.ListAssignments)
		assignments.GET("/:id", anyone, h.GetAssignment)
		assignments.GET("/:id/payments", anyone, h.PaymentSummary)
		assignments.POST("/:id/payments/:phaseId/paid", admin, h.MarkPhasePaid)
		assignments.PATCH("/:id/payments/:phaseId", admin, h.UpdatePhasePayment)
		assignments.PUT("/:id/price", admin, h.NegotiatePrice)
		assignments.PUT("/:id/status", admin, h.SetStatus)
		assignments.DELETE("/:id", admin, h.RemoveAssignment)
	}

	router.GET("/api/plots/:id/breakdown", anyone, h.PlotBreakdown)
}

// AssignPlot godoc
// @Summary      Assign a plot to a lead
// @Description  Reserves the plot, opens the agent's commission entry and computes the entitlement
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.AssignPlotDTO  true  "Assignment"
// @Success      201      {object}  response.Response{data=service.AssignmentResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/assignments [post]
func (h *AssignmentHandler) AssignPlot(c *gin.Context) {
	var req service.AssignPlotDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	// Agents can only book in their own name.
	if userID, role := middleware.CurrentUser(c); role == model.RoleAgent {
		req.AgentID = userID
	}

	result, err := h.assignmentService.AssignPlot(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	params := pagination.Parse(c)
	agentID := c.Query("agent_id")
	if userID, role := middleware.CurrentUser(c); role == model.RoleAgent || agentID == "" {
		agentID = userID
	}

	items, total, err := h.assignmentService.ListAssignments(c.Request.Context(), service.AssignmentFilter{
		AgentID: agentID,
		Status:  c.Query("status"),
		Page:    params.Page,
		Limit:   params.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, items, total, params.Page, params.Limit))
}

func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	result, err := h.assignmentService.GetAssignment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !h.canSee(c, result.AgentID) {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// PaymentSummary godoc
// @Summary      Payment schedule of an assignment
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Assignment ID"
// @Success      200  {object}  response.Response{data=service.PaymentSummary}
// @Failure      404  {object}  response.Response
// @Router       /api/assignments/{id}/payments [get]
func (h *AssignmentHandler) PaymentSummary(c *gin.Context) {
	result, err := h.assignmentService.PaymentSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !h.canSee(c, result.Assignment.AgentID) {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type markPaidBody struct {
	BillNumber string `json:"bill_number"`
	Remarks    string `json:"remarks"`
}

// MarkPhasePaid godoc
// @Summary      Mark a payment phase paid
// @Description  Idempotent. The first time a phase is marked paid the agent's commission for it is released.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string        true  "Assignment ID"
// @Param        phaseId  path      string        true  "Phase ID"
// @Param        payload  body      markPaidBody  false "Bill reference"
// @Success      200      {object}  response.Response{data=service.PhasePaymentResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/assignments/{id}/payments/{phaseId}/paid [post]
func (h *AssignmentHandler) MarkPhasePaid(c *gin.Context) {
	var body markPaidBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			writeBindError(c, err)
			return
		}
	}

	result, err := h.assignmentService.MarkPhasePaid(c.Request.Context(), service.MarkPhasePaidDTO{
		AssignmentID: c.Param("id"),
		PhaseID:      c.Param("phaseId"),
		BillNumber:   body.BillNumber,
		Remarks:      body.Remarks,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

func (h *AssignmentHandler) UpdatePhasePayment(c *gin.Context) {
	var req service.UpdatePhasePaymentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	req.AssignmentID = c.Param("id")
	req.PhaseID = c.Param("phaseId")

	result, err := h.assignmentService.UpdatePhasePayment(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// NegotiatePrice godoc
// @Summary      Set a negotiated price
// @Description  Accepts shorthand like "1Cr" or "75L". Commission already released is not adjusted.
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Assignment ID"
// @Param        payload  body      service.NegotiatePriceDTO  true  "Price and payment mode"
// @Success      200      {object}  response.Response{data=service.AssignmentResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/assignments/{id}/price [put]
func (h *AssignmentHandler) NegotiatePrice(c *gin.Context) {
	var req service.NegotiatePriceDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	req.AssignmentID = c.Param("id")

	result, err := h.assignmentService.NegotiatePrice(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

func (h *AssignmentHandler) SetStatus(c *gin.Context) {
	var req service.SetAssignmentStatusDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	result, err := h.assignmentService.SetAssignmentStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

func (h *AssignmentHandler) RemoveAssignment(c *gin.Context) {
	if err := h.assignmentService.RemoveAssignment(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

func (h *AssignmentHandler) PlotBreakdown(c *gin.Context) {
	result, err := h.assignmentService.PlotBreakdown(c.Request.Context(), c.Param("id"), c.Query("mode"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// canSee stops agents from reading other agents' assignments
func (h *AssignmentHandler) canSee(c *gin.Context, ownerID string) bool {
	userID, role := middleware.CurrentUser(c)
	if role == model.RoleAgent && userID != ownerID {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied"))
		return false
	}
	return true
}
