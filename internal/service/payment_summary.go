package service

import (
	"context"
	"fmt"
	"time"

	"neelgund-backend/internal/model"

	"github.com/shopspring/decimal"
)

type PaymentSummaryLine struct {
	PhaseID            string          `json:"phase_id"`
	Name               string          `json:"name"`
	OrderIndex         int             `json:"order_index"`
	Percentage         decimal.Decimal `json:"percentage"`
	Amount             decimal.Decimal `json:"amount"`
	DueDate            string          `json:"due_date"`
	Paid               bool            `json:"paid"`
	PaidAt             *string         `json:"paid_at"`
	BillNumber         string          `json:"bill_number"`
	Remarks            string          `json:"remarks"`
	CommissionReleased decimal.Decimal `json:"commission_released"`
}

type PaymentSummary struct {
	Assignment AssignmentResponse   `json:"assignment"`
	BasePrice  decimal.Decimal      `json:"base_price"`
	TotalPaid  decimal.Decimal      `json:"total_paid"`
	Balance    decimal.Decimal      `json:"balance"`
	Phases     []PaymentSummaryLine `json:"phases"`
	NextDue    []PaymentSummaryLine `json:"next_due"`
}

// PaymentSummary lays out an assignment's schedule with what has been paid so
// far. NextDue holds the unpaid phases up to the project's current
// construction phase, or the first unpaid phase when none is set.
func (s *assignmentService) PaymentSummary(ctx context.Context, id string) (PaymentSummary, error) {
	aID, err := parseID("assignment id", id)
	if err != nil {
		return PaymentSummary{}, err
	}
	a, err := s.assignments.FindByID(ctx, aID)
	if err != nil {
		return PaymentSummary{}, notFound("assignment", err)
	}
	all, err := s.projects.ListPhases(ctx, a.Plot.ProjectID)
	if err != nil {
		return PaymentSummary{}, fmt.Errorf("failed to load phases: %w", err)
	}

	paymentsByPhase := make(map[string]model.PhasePayment, len(a.Payments))
	for _, p := range a.Payments {
		paymentsByPhase[p.PhaseID.String()] = p
	}

	base := a.BasePrice()
	summary := PaymentSummary{
		Assignment: toAssignmentResponse(*a),
		BasePrice:  base,
		TotalPaid:  decimal.Zero,
		Phases:     []PaymentSummaryLine{},
		NextDue:    []PaymentSummaryLine{},
	}

	currentIndex := -1
	for _, ph := range all {
		if a.Plot.Project.CurrentPhaseID != nil && ph.ID == *a.Plot.Project.CurrentPhaseID {
			currentIndex = ph.OrderIndex
		}
	}

	for _, ph := range PhasesFor(all, a.PaymentMode) {
		line := PaymentSummaryLine{
			PhaseID:            ph.ID.String(),
			Name:               ph.Name,
			OrderIndex:         ph.OrderIndex,
			Percentage:         ph.Percentage,
			Amount:             AmountFor(ph, base),
			DueDate:            DueDate(ph, a.AssignedAt).Format(time.DateOnly),
			CommissionReleased: decimal.Zero,
		}
		if p, ok := paymentsByPhase[line.PhaseID]; ok {
			line.Paid = p.Paid
			line.BillNumber = p.BillNumber
			line.Remarks = p.Remarks
			line.CommissionReleased = p.CommissionReleased
			if p.PaidAt != nil {
				at := p.PaidAt.Format(time.RFC3339)
				line.PaidAt = &at
			}
		}
		if line.Paid {
			summary.TotalPaid = summary.TotalPaid.Add(line.Amount)
		}
		summary.Phases = append(summary.Phases, line)
	}

	for _, line := range summary.Phases {
		if line.Paid {
			continue
		}
		if currentIndex < 0 {
			summary.NextDue = append(summary.NextDue, line)
			break
		}
		if line.OrderIndex <= currentIndex {
			summary.NextDue = append(summary.NextDue, line)
		}
	}

	summary.Balance = decimal.Max(decimal.Zero, base.Sub(summary.TotalPaid))
	return summary, nil
}
