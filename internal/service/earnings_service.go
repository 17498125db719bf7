package service

import (
	"context"
	"fmt"

	"neelgund-backend/internal/cache"
	"neelgund-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type EarningLine struct {
	CommissionID string          `json:"commission_id"`
	AssignmentID string          `json:"assignment_id"`
	ProjectName  string          `json:"project_name"`
	Total        decimal.Decimal `json:"total_commission"`
	Released     decimal.Decimal `json:"released"`
	Withdrawn    decimal.Decimal `json:"withdrawn"`
	Available    decimal.Decimal `json:"available"`
}

type EarningsSummary struct {
	AgentID   string          `json:"agent_id"`
	Plots     int64           `json:"plots"`
	Total     decimal.Decimal `json:"total_commission"`
	Released  decimal.Decimal `json:"released"`
	Withdrawn decimal.Decimal `json:"withdrawn"`
	Available decimal.Decimal `json:"available"`
	Pending   decimal.Decimal `json:"pending"` // entitled but not yet released
	Entries   []EarningLine   `json:"entries"`
}

type AgentRanking struct {
	Rank      int             `json:"rank"`
	AgentID   string          `json:"agent_id"`
	AgentName string          `json:"agent_name"`
	Plots     int64           `json:"plots"`
	Total     decimal.Decimal `json:"total_commission"`
	Released  decimal.Decimal `json:"released"`
}

type EarningsService interface {
	Summary(ctx context.Context, agentID string) (EarningsSummary, error)
	TopAgents(ctx context.Context, limit int) ([]AgentRanking, error)
}

type earningsService struct {
	commissions repository.CommissionRepository
	cache       *cache.Cache
}

func NewEarningsService(commissions repository.CommissionRepository, c *cache.Cache) EarningsService {
	return &earningsService{commissions: commissions, cache: c}
}

func (s *earningsService) Summary(ctx context.Context, agentID string) (EarningsSummary, error) {
	id, err := parseID("agent_id", agentID)
	if err != nil {
		return EarningsSummary{}, err
	}

	var summary EarningsSummary
	if s.cache.GetJSON(ctx, cache.EarningsKey(id.String()), &summary) {
		return summary, nil
	}

	totals, err := s.commissions.Totals(ctx, id)
	if err != nil {
		return EarningsSummary{}, fmt.Errorf("failed to total commissions: %w", err)
	}
	entries, err := s.commissions.ListByAgent(ctx, id)
	if err != nil {
		return EarningsSummary{}, fmt.Errorf("failed to list commissions: %w", err)
	}

	summary = EarningsSummary{
		AgentID:   id.String(),
		Plots:     totals.Entries,
		Total:     totals.Total,
		Released:  totals.Released,
		Withdrawn: totals.Withdrawn,
		Available: totals.Available,
		Pending:   decimal.Max(decimal.Zero, totals.Total.Sub(totals.Released)),
		Entries:   make([]EarningLine, len(entries)),
	}
	for i, e := range entries {
		line := EarningLine{
			CommissionID: e.ID.String(),
			AssignmentID: e.AssignmentID.String(),
			Total:        e.TotalCommission,
			Released:     e.WithdrawableAmount,
			Withdrawn:    e.WithdrawnAmount,
			Available:    e.Available(),
		}
		if e.Project != nil {
			line.ProjectName = e.Project.Name
		}
		summary.Entries[i] = line
	}

	s.cache.SetJSON(ctx, cache.EarningsKey(id.String()), summary)
	return summary, nil
}

func (s *earningsService) TopAgents(ctx context.Context, limit int) ([]AgentRanking, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}

	var ranking []AgentRanking
	if s.cache.GetJSON(ctx, cache.TopAgentsKey(limit), &ranking) {
		return ranking, nil
	}

	rows, err := s.commissions.TopAgents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank agents: %w", err)
	}
	ranking = make([]AgentRanking, len(rows))
	for i, r := range rows {
		ranking[i] = AgentRanking{
			Rank:      i + 1,
			AgentID:   r.AgentID.String(),
			AgentName: r.AgentName,
			Plots:     r.Plots,
			Total:     r.Total,
			Released:  r.Released,
		}
	}

	s.cache.SetJSON(ctx, cache.TopAgentsKey(limit), ranking)
	return ranking, nil
}
