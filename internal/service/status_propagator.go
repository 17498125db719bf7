package service

import (
	"context"
	"fmt"

	"neelgund-backend/internal/model"
	"neelgund-backend/internal/repository"

	"github.com/google/uuid"
)

// DeriveLeadProjectStatus computes a lead-project's status from its assignments.
// Cancelled assignments do not count towards "all closed".
func DeriveLeadProjectStatus(assignmentStatuses []string) string {
	if len(assignmentStatuses) == 0 {
		return model.LeadProjectStatusInterested
	}
	live, closed := 0, 0
	for _, s := range assignmentStatuses {
		if s == model.AssignmentStatusCancelled {
			continue
		}
		live++
		if s == model.AssignmentStatusClosed {
			closed++
		}
	}
	switch {
	case live == 0:
		return model.LeadProjectStatusCancelled
	case closed == live:
		return model.LeadProjectStatusClosed
	default:
		return model.LeadProjectStatusInProgress
	}
}

// DeriveLeadStatus computes a lead's status from its lead-projects.
func DeriveLeadStatus(projectStatuses []string) string {
	if len(projectStatuses) == 0 {
		return model.LeadStatusNew
	}
	closed, cancelled := 0, 0
	for _, s := range projectStatuses {
		switch s {
		case model.LeadProjectStatusInProgress:
			return model.LeadStatusInProgress
		case model.LeadProjectStatusClosed:
			closed++
		case model.LeadProjectStatusCancelled:
			cancelled++
		}
	}
	switch len(projectStatuses) {
	case closed:
		return model.LeadStatusClosed
	case cancelled:
		return model.LeadStatusCancelled
	}
	return model.LeadStatusInProgress
}

// StatusPropagator rewrites derived statuses bottom-up. Callers run it inside
// the transaction of the write that changed the children.
type StatusPropagator interface {
	Propagate(ctx context.Context, leadProjectID uuid.UUID) error
	PropagateLead(ctx context.Context, leadID uuid.UUID) error
}

type statusPropagator struct {
	leads repository.LeadRepository
}

func NewStatusPropagator(leads repository.LeadRepository) StatusPropagator {
	return &statusPropagator{leads: leads}
}

func (p *statusPropagator) Propagate(ctx context.Context, leadProjectID uuid.UUID) error {
	lp, err := p.leads.FindLeadProject(ctx, leadProjectID)
	if err != nil {
		return notFound("lead project", err)
	}
	statuses, err := p.leads.AssignmentStatuses(ctx, leadProjectID)
	if err != nil {
		return fmt.Errorf("failed to load assignment statuses: %w", err)
	}
	if derived := DeriveLeadProjectStatus(statuses); derived != lp.Status {
		if err := p.leads.SetLeadProjectStatus(ctx, lp.ID, derived); err != nil {
			return fmt.Errorf("failed to update lead project status: %w", err)
		}
	}
	return p.PropagateLead(ctx, lp.LeadID)
}

func (p *statusPropagator) PropagateLead(ctx context.Context, leadID uuid.UUID) error {
	lead, err := p.leads.FindLead(ctx, leadID)
	if err != nil {
		return notFound("lead", err)
	}
	statuses, err := p.leads.LeadProjectStatuses(ctx, leadID)
	if err != nil {
		return fmt.Errorf("failed to load lead project statuses: %w", err)
	}
	if derived := DeriveLeadStatus(statuses); derived != lead.Status {
		if err := p.leads.SetLeadStatus(ctx, lead.ID, derived); err != nil {
			return fmt.Errorf("failed to update lead status: %w", err)
		}
	}
	return nil
}
