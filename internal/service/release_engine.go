package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"neelgund-backend/internal/model"
	"neelgund-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReleaseResult reports what a newly paid phase did to the ledger.
type ReleaseResult struct {
	CommissionID uuid.UUID
	Total        decimal.Decimal
	Released     decimal.Decimal
}

// ReleaseEngine turns confirmed phase payments into released commission.
type ReleaseEngine interface {
	// CalculateTotal derives the entitlement from the assignment's base price
	// and the project rate. The assignment must have Plot.Project loaded.
	CalculateTotal(ctx context.Context, a *model.PlotAssignment) (*model.AgentCommission, error)
	// OnPhasePaid must be called once, inside the transaction that flipped
	// payment from unpaid to paid and after that flip was saved.
	OnPhasePaid(ctx context.Context, a *model.PlotAssignment, phase model.PaymentPhase, payment *model.PhasePayment) (ReleaseResult, error)
}

type releaseEngine struct {
	txm      repository.TransactionManager
	ledger   CommissionLedger
	projects repository.ProjectRepository
	payments repository.PaymentRepository
}

func NewReleaseEngine(txm repository.TransactionManager, ledger CommissionLedger, projects repository.ProjectRepository, payments repository.PaymentRepository) ReleaseEngine {
	return &releaseEngine{txm: txm, ledger: ledger, projects: projects, payments: payments}
}

func entitlementFor(a *model.PlotAssignment) (decimal.Decimal, error) {
	if a.Plot == nil || a.Plot.Project == nil {
		return decimal.Zero, fmt.Errorf("assignment %s loaded without plot project", a.ID)
	}
	return Percent(a.BasePrice(), a.Plot.Project.CommissionPercentage), nil
}

func (e *releaseEngine) CalculateTotal(ctx context.Context, a *model.PlotAssignment) (*model.AgentCommission, error) {
	total, err := entitlementFor(a)
	if err != nil {
		return nil, err
	}

	var entry *model.AgentCommission
	err = e.txm.RunInTx(ctx, func(txCtx context.Context) error {
		opened, err := e.ledger.Open(txCtx, a.ID, a.AgentID, a.Plot.ProjectID)
		if err != nil {
			return err
		}
		entry, err = e.ledger.SetEntitlement(txCtx, opened.ID, total)
		return err
	})
	return entry, err
}

func (e *releaseEngine) OnPhasePaid(ctx context.Context, a *model.PlotAssignment, phase model.PaymentPhase, payment *model.PhasePayment) (ReleaseResult, error) {
	var result ReleaseResult
	if phase.Mode != a.PaymentMode {
		log.Printf("assignment %s is %s, phase %q is %s: nothing to release", a.ID, a.PaymentMode, phase.Name, phase.Mode)
		return result, nil
	}

	err := e.txm.RunInTx(ctx, func(txCtx context.Context) error {
		total, err := entitlementFor(a)
		if err != nil {
			return err
		}
		entry, err := e.CalculateTotal(txCtx, a)
		if err != nil {
			return err
		}
		result.CommissionID = entry.ID
		result.Total = entry.TotalCommission

		var amount decimal.Decimal
		switch a.PaymentMode {
		case model.PaymentModePhaseWise:
			if payment.ReleasedAt != nil {
				return nil
			}
			amount = Percent(total, phase.Percentage)

		case model.PaymentModeFullPayment:
			if payment.ReleasedAt != nil {
				return nil
			}
			ids, err := e.fullPaymentPhaseIDs(txCtx, a)
			if err != nil {
				return err
			}
			// A full_payment contract releases once; renegotiating afterwards
			// never tops it up.
			settled, err := e.payments.CountReleased(txCtx, a.ID, ids)
			if err != nil {
				return fmt.Errorf("failed to count released phases: %w", err)
			}
			if settled > 0 {
				return nil
			}
			paid, err := e.payments.CountPaid(txCtx, a.ID, ids)
			if err != nil {
				return fmt.Errorf("failed to count paid phases: %w", err)
			}
			if len(ids) == 0 || paid != int64(len(ids)) {
				return nil
			}
			amount = entry.TotalCommission

		default:
			return fmt.Errorf("assignment %s has unknown payment mode %q: %w", a.ID, a.PaymentMode, ErrInvalidInput)
		}

		released, err := e.ledger.Release(txCtx, entry.ID, amount)
		if err != nil {
			return err
		}
		result.Released = released

		if payment.ReleasedAt == nil || released.IsPositive() {
			stamp := time.Now()
			payment.ReleasedAt = &stamp
			payment.CommissionReleased = payment.CommissionReleased.Add(released)
			if err := e.payments.Update(txCtx, payment); err != nil {
				return fmt.Errorf("failed to stamp release on payment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return ReleaseResult{}, err
	}
	return result, nil
}

func (e *releaseEngine) fullPaymentPhaseIDs(ctx context.Context, a *model.PlotAssignment) ([]uuid.UUID, error) {
	all, err := e.projects.ListPhases(ctx, a.Plot.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}
	for _, w := range ScheduleWarnings(all) {
		log.Printf("project %s: %s", a.Plot.ProjectID, w)
	}

	phases := PhasesFor(all, model.PaymentModeFullPayment)
	ids := make([]uuid.UUID, len(phases))
	for i, p := range phases {
		ids[i] = p.ID
	}
	return ids, nil
}
