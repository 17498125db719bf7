package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgentCommission is the ledger entry for one plot assignment.
//
// WithdrawableAmount is the cumulative amount released so far; WithdrawnAmount
// is the part of it already paid out. After every mutation:
//
//	0 <= WithdrawnAmount <= WithdrawableAmount <= TotalCommission
type AgentCommission struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"assignment_id"`
	AgentID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"agent_id"`
	ProjectID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	Project            *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	TotalCommission    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_commission"`
	WithdrawableAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"withdrawable_amount"`
	WithdrawnAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"withdrawn_amount"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Available is the released amount not yet withdrawn, never negative.
func (c *AgentCommission) Available() decimal.Decimal {
	return decimal.Max(decimal.Zero, c.WithdrawableAmount.Sub(c.WithdrawnAmount))
}

// SetEntitlement overwrites the total commission. Already released money is
// never taken back, so the total is floored at WithdrawableAmount; the returned
// flag reports whether that floor applied.
func (c *AgentCommission) SetEntitlement(total decimal.Decimal) (floored bool) {
	if total.IsNegative() {
		total = decimal.Zero
	}
	if total.LessThan(c.WithdrawableAmount) {
		c.TotalCommission = c.WithdrawableAmount
		return true
	}
	c.TotalCommission = total
	return false
}

// Release unlocks up to amount, clamped so WithdrawableAmount never passes
// TotalCommission. It returns what was actually released.
func (c *AgentCommission) Release(amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	headroom := c.TotalCommission.Sub(c.WithdrawableAmount)
	if !headroom.IsPositive() {
		return decimal.Zero
	}
	released := decimal.Min(amount, headroom)
	c.WithdrawableAmount = c.WithdrawableAmount.Add(released)
	return released
}

// RecordWithdrawal moves amount from available to withdrawn. It refuses
// amounts above Available so WithdrawnAmount never passes WithdrawableAmount.
func (c *AgentCommission) RecordWithdrawal(amount decimal.Decimal) bool {
	if amount.IsNegative() || amount.GreaterThan(c.Available()) {
		return false
	}
	c.WithdrawnAmount = c.WithdrawnAmount.Add(amount)
	return true
}

// Validate checks the ledger invariant.
func (c *AgentCommission) Validate() error {
	if c.WithdrawnAmount.IsNegative() ||
		c.WithdrawnAmount.GreaterThan(c.WithdrawableAmount) ||
		c.WithdrawableAmount.GreaterThan(c.TotalCommission) {
		return fmt.Errorf("commission %s out of balance: total=%s withdrawable=%s withdrawn=%s",
			c.ID, c.TotalCommission.StringFixed(2), c.WithdrawableAmount.StringFixed(2), c.WithdrawnAmount.StringFixed(2))
	}
	return nil
}
