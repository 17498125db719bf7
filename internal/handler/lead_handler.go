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

type LeadHandler struct {
	leadService service.LeadService
}

func NewLeadHandler(leadService service.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

func (h *LeadHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyone := middleware.RequireRole(model.RoleAgent, model.RoleAdmin)

	leads := router.Group("/api/leads", anyone)
	{
		leads.POST("", h.CreateLead)
		leads.GET("", h.ListLeads)
	}

	router.GET("/api/projects/:id/available-plots", anyone, h.AvailablePlots)

	leadProjects := router.Group("/api/lead-projects", anyone)
	{
		leadProjects.POST("", h.AddLeadProject)
		leadProjects.GET("/:id", h.GetLeadProject)
		leadProjects.DELETE("/:id", h.RemoveLeadProject)
	}
}

// CreateLead godoc
// @Summary      Register a lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      service.CreateLeadDTO  true  "Lead"
// @Success      201      {object}  response.Response{data=service.LeadResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/leads [post]
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req service.CreateLeadDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	// Agents own the leads they create.
	if userID, role := middleware.CurrentUser(c); role == model.RoleAgent {
		req.AgentID = userID
	}

	result, err := h.leadService.CreateLead(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListLeads godoc
// @Summary      List an agent's leads
// @Tags         leads
// @Produce      json
// @Security     BearerAuth
// @Param        q         query     string  false  "Name, phone or email contains"
// @Param        status    query     string  false  "Lead status"
// @Param        agent_id  query     string  false  "Agent (admins only)"
// @Param        page      query     int     false  "Page"
// @Param        limit     query     int     false  "Page size"
// @Success      200       {object}  response.Page{data=[]service.LeadResponse}
// @Router       /api/leads [get]
func (h *LeadHandler) ListLeads(c *gin.Context) {
	params := pagination.Parse(c)
	agentID := c.Query("agent_id")
	if userID, role := middleware.CurrentUser(c); role == model.RoleAgent || agentID == "" {
		agentID = userID
	}

	items, total, err := h.leadService.ListLeads(c.Request.Context(), service.LeadFilter{
		AgentID: agentID,
		Search:  c.Query("q"),
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

func (h *LeadHandler) AvailablePlots(c *gin.Context) {
	result, err := h.leadService.AvailablePlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

func (h *LeadHandler) AddLeadProject(c *gin.Context) {
	var req service.AddLeadProjectDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	result, err := h.leadService.AddLeadProject(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

func (h *LeadHandler) GetLeadProject(c *gin.Context) {
	result, err := h.leadService.GetLeadProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

func (h *LeadHandler) RemoveLeadProject(c *gin.Context) {
	if err := h.leadService.RemoveLeadProject(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
