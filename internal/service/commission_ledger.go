package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"neelgund-backend/internal/model"
	"neelgund-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionLedger owns every mutation of AgentCommission rows. Each call runs
// in its own transaction, or joins the caller's, and locks the row it changes.
type CommissionLedger interface {
	Open(ctx context.Context, assignmentID, agentID, projectID uuid.UUID) (*model.AgentCommission, error)
	SetEntitlement(ctx context.Context, entryID uuid.UUID, total decimal.Decimal) (*model.AgentCommission, error)
	Release(ctx context.Context, entryID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	RecordWithdrawal(ctx context.Context, entryID uuid.UUID, amount decimal.Decimal) error
	SumAvailable(ctx context.Context, agentID uuid.UUID) (decimal.Decimal, error)
}

type commissionLedger struct {
	txm  repository.TransactionManager
	repo repository.CommissionRepository
}

func NewCommissionLedger(txm repository.TransactionManager, repo repository.CommissionRepository) CommissionLedger {
	return &commissionLedger{txm: txm, repo: repo}
}

func (l *commissionLedger) Open(ctx context.Context, assignmentID, agentID, projectID uuid.UUID) (*model.AgentCommission, error) {
	var entry *model.AgentCommission
	err := l.txm.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := l.repo.FindByAssignment(txCtx, assignmentID)
		if err == nil {
			entry = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up commission: %w", err)
		}

		fresh := &model.AgentCommission{
			AssignmentID:       assignmentID,
			AgentID:            agentID,
			ProjectID:          projectID,
			TotalCommission:    decimal.Zero,
			WithdrawableAmount: decimal.Zero,
			WithdrawnAmount:    decimal.Zero,
		}
		if err := l.repo.Create(txCtx, fresh); err != nil {
			return fmt.Errorf("failed to open commission: %w", err)
		}
		entry = fresh
		return nil
	})
	return entry, err
}

func (l *commissionLedger) SetEntitlement(ctx context.Context, entryID uuid.UUID, total decimal.Decimal) (*model.AgentCommission, error) {
	var entry *model.AgentCommission
	err := l.mutate(ctx, entryID, func(c *model.AgentCommission) error {
		if c.SetEntitlement(total) {
			log.Printf("commission %s: entitlement %s is below released %s, keeping %s",
				c.ID, total.StringFixed(2), c.WithdrawableAmount.StringFixed(2), c.TotalCommission.StringFixed(2))
		}
		entry = c
		return nil
	})
	return entry, err
}

func (l *commissionLedger) Release(ctx context.Context, entryID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	released := decimal.Zero
	err := l.mutate(ctx, entryID, func(c *model.AgentCommission) error {
		released = c.Release(amount)
		return nil
	})
	return released, err
}

func (l *commissionLedger) RecordWithdrawal(ctx context.Context, entryID uuid.UUID, amount decimal.Decimal) error {
	return l.mutate(ctx, entryID, func(c *model.AgentCommission) error {
		if !c.RecordWithdrawal(amount) {
			return fmt.Errorf("commission %s has %s available, asked %s: %w",
				c.ID, c.Available().StringFixed(2), amount.StringFixed(2), ErrInsufficientBalance)
		}
		return nil
	})
}

func (l *commissionLedger) SumAvailable(ctx context.Context, agentID uuid.UUID) (decimal.Decimal, error) {
	return l.repo.SumAvailable(ctx, agentID)
}

// mutate locks the entry, applies fn and persists the result after checking
// the ledger invariant.
func (l *commissionLedger) mutate(ctx context.Context, entryID uuid.UUID, fn func(c *model.AgentCommission) error) error {
	return l.txm.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err := l.repo.LockByID(txCtx, entryID)
		if err != nil {
			return notFound("commission", err)
		}
		if err := fn(entry); err != nil {
			return err
		}
		if err := entry.Validate(); err != nil {
			return err
		}
		if err := l.repo.Update(txCtx, entry); err != nil {
			return fmt.Errorf("failed to save commission: %w", err)
		}
		return nil
	})
}
