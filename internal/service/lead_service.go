package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"neelgund-backend/internal/model"
	"neelgund-backend/internal/repository"
	"neelgund-backend/pkg/pagination"
	"neelgund-backend/pkg/price"

	"github.com/shopspring/decimal"
)

type CreateLeadDTO struct {
	AgentID       string `json:"agent_id" validate:"required,uuid"`
	FullName      string `json:"full_name" validate:"required,max=150"`
	ContactNumber string `json:"contact_number" validate:"omitempty,max=15"`
	Email         string `json:"email" validate:"omitempty,email,max=255"`
}

type LeadResponse struct {
	ID            string   `json:"id"`
	AgentID       string   `json:"agent_id"`
	FullName      string   `json:"full_name"`
	ContactNumber string   `json:"contact_number"`
	Email         string   `json:"email"`
	Status        string   `json:"status"`
	ProjectIDs    []string `json:"project_ids"`
	CreatedAt     string   `json:"created_at"`
	// Set when another lead already uses the phone or email. The lead is
	// created anyway.
	DuplicateWarning string `json:"duplicate_warning,omitempty"`
}

type LeadFilter struct {
	AgentID string
	Search  string
	Status  string
	Page    int
	Limit   int
}

type PlotResponse struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	PlotNo      string          `json:"plot_no"`
	Size        string          `json:"size"`
	AreaSq      decimal.Decimal `json:"area_sq"`
	Price       string          `json:"price"`
	PriceValue  decimal.Decimal `json:"price_value"`
	IsAvailable bool            `json:"is_available"`
}

type AddLeadProjectDTO struct {
	LeadID    string `json:"lead_id" validate:"required,uuid"`
	ProjectID string `json:"project_id" validate:"required,uuid"`
}

type LeadProjectResponse struct {
	ID         string `json:"id"`
	LeadID     string `json:"lead_id"`
	ProjectID  string `json:"project_id"`
	Status     string `json:"status"`
	LeadStatus string `json:"lead_status"`
}

// LeadService manages an agent's leads and their project interests. Statuses
// of both levels are rederived in the same transaction as each change.
type LeadService interface {
	CreateLead(ctx context.Context, req CreateLeadDTO) (LeadResponse, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]LeadResponse, int64, error)
	// AvailablePlots lists the plots of a project that can still be booked.
	AvailablePlots(ctx context.Context, projectID string) ([]PlotResponse, error)
	AddLeadProject(ctx context.Context, req AddLeadProjectDTO) (LeadProjectResponse, error)
	RemoveLeadProject(ctx context.Context, id string) error
	GetLeadProject(ctx context.Context, id string) (LeadProjectResponse, error)
}

type leadService struct {
	txm        repository.TransactionManager
	leads      repository.LeadRepository
	projects   repository.ProjectRepository
	propagator StatusPropagator
}

func NewLeadService(txm repository.TransactionManager, leads repository.LeadRepository, projects repository.ProjectRepository, propagator StatusPropagator) LeadService {
	return &leadService{txm: txm, leads: leads, projects: projects, propagator: propagator}
}

func toLeadResponse(l model.Lead) LeadResponse {
	resp := LeadResponse{
		ID:            l.ID.String(),
		AgentID:       l.AgentID.String(),
		FullName:      l.FullName,
		ContactNumber: l.ContactNumber,
		Email:         l.Email,
		Status:        l.Status,
		ProjectIDs:    make([]string, 0, len(l.LeadProjects)),
		CreatedAt:     l.CreatedAt.Format(time.RFC3339),
	}
	for _, lp := range l.LeadProjects {
		resp.ProjectIDs = append(resp.ProjectIDs, lp.ProjectID.String())
	}
	return resp
}

// CreateLead registers a new lead for the agent. Projects are added later
// through AddLeadProject.
func (s *leadService) CreateLead(ctx context.Context, req CreateLeadDTO) (LeadResponse, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.ContactNumber = strings.TrimSpace(req.ContactNumber)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateDTO(req); err != nil {
		return LeadResponse{}, err
	}
	agentID, _ := parseID("agent_id", req.AgentID)

	duplicates, err := s.leads.CountMatchingContacts(ctx, req.ContactNumber, req.Email)
	if err != nil {
		return LeadResponse{}, fmt.Errorf("failed to check duplicate leads: %w", err)
	}

	lead := model.Lead{
		AgentID:       agentID,
		FullName:      req.FullName,
		ContactNumber: req.ContactNumber,
		Email:         req.Email,
		Status:        model.LeadStatusNew,
	}
	if err := s.leads.CreateLead(ctx, &lead); err != nil {
		return LeadResponse{}, fmt.Errorf("failed to create lead: %w", err)
	}

	resp := toLeadResponse(lead)
	if duplicates > 0 {
		resp.DuplicateWarning = "A lead with this phone number or email already exists."
	}
	return resp, nil
}

func (s *leadService) ListLeads(ctx context.Context, filter LeadFilter) ([]LeadResponse, int64, error) {
	agentID, err := parseID("agent_id", filter.AgentID)
	if err != nil {
		return nil, 0, err
	}
	switch filter.Status {
	case "", model.LeadStatusNew, model.LeadStatusInProgress, model.LeadStatusClosed, model.LeadStatusCancelled:
	default:
		return nil, 0, fmt.Errorf("unknown lead status %q: %w", filter.Status, ErrInvalidInput)
	}
	params := pagination.New(filter.Page, filter.Limit)
	leads, total, err := s.leads.ListLeads(ctx, agentID, strings.TrimSpace(filter.Search), filter.Status, params.Offset, params.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	result := make([]LeadResponse, len(leads))
	for i, l := range leads {
		result[i] = toLeadResponse(l)
	}
	return result, total, nil
}

func (s *leadService) AvailablePlots(ctx context.Context, projectID string) ([]PlotResponse, error) {
	id, err := parseID("project_id", projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.FindProject(ctx, id); err != nil {
		return nil, notFound("project", err)
	}
	plots, err := s.projects.ListPlots(ctx, id, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list plots: %w", err)
	}
	result := make([]PlotResponse, len(plots))
	for i, p := range plots {
		result[i] = PlotResponse{
			ID:          p.ID.String(),
			ProjectID:   p.ProjectID.String(),
			PlotNo:      p.PlotNo,
			Size:        p.Size,
			AreaSq:      p.AreaSq,
			Price:       p.Price,
			PriceValue:  price.Parse(p.Price),
			IsAvailable: p.IsAvailable,
		}
	}
	return result, nil
}

func (s *leadService) AddLeadProject(ctx context.Context, req AddLeadProjectDTO) (LeadProjectResponse, error) {
	if err := validateDTO(req); err != nil {
		return LeadProjectResponse{}, err
	}
	leadID, _ := parseID("lead_id", req.LeadID)
	projectID, _ := parseID("project_id", req.ProjectID)

	var lp model.LeadProject
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.leads.FindLead(txCtx, leadID); err != nil {
			return notFound("lead", err)
		}
		if _, err := s.projects.FindProject(txCtx, projectID); err != nil {
			return notFound("project", err)
		}
		lp = model.LeadProject{
			LeadID:    leadID,
			ProjectID: projectID,
			Status:    model.LeadProjectStatusInterested,
		}
		if err := s.leads.CreateLeadProject(txCtx, &lp); err != nil {
			if repository.IsUniqueViolation(err) {
				return fmt.Errorf("lead already follows this project: %w", ErrInvalidInput)
			}
			return fmt.Errorf("failed to create lead project: %w", err)
		}
		return s.propagator.PropagateLead(txCtx, leadID)
	})
	if err != nil {
		return LeadProjectResponse{}, err
	}
	return s.GetLeadProject(ctx, lp.ID.String())
}

// RemoveLeadProject deletes a lead-project that has no plot assignments.
func (s *leadService) RemoveLeadProject(ctx context.Context, id string) error {
	lpID, err := parseID("lead project id", id)
	if err != nil {
		return err
	}
	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		lp, err := s.leads.FindLeadProject(txCtx, lpID)
		if err != nil {
			return notFound("lead project", err)
		}
		n, err := s.leads.CountAssignments(txCtx, lpID)
		if err != nil {
			return fmt.Errorf("failed to count assignments: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("lead project still has %d plot assignments: %w", n, ErrInvalidStateTransition)
		}
		if err := s.leads.DeleteLeadProject(txCtx, lpID); err != nil {
			return fmt.Errorf("failed to delete lead project: %w", err)
		}
		return s.propagator.PropagateLead(txCtx, lp.LeadID)
	})
}

func (s *leadService) GetLeadProject(ctx context.Context, id string) (LeadProjectResponse, error) {
	lpID, err := parseID("lead project id", id)
	if err != nil {
		return LeadProjectResponse{}, err
	}
	lp, err := s.leads.FindLeadProject(ctx, lpID)
	if err != nil {
		return LeadProjectResponse{}, notFound("lead project", err)
	}
	resp := LeadProjectResponse{
		ID:        lp.ID.String(),
		LeadID:    lp.LeadID.String(),
		ProjectID: lp.ProjectID.String(),
		Status:    lp.Status,
	}
	if lp.Lead != nil {
		resp.LeadStatus = lp.Lead.Status
	}
	return resp, nil
}
