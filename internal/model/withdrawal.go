package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus enum constants
const (
	WithdrawalPending  = "PENDING"
	WithdrawalApproved = "APPROVED"
	WithdrawalRejected = "REJECTED"
)

// WithdrawalRequest is an agent's request to be paid out of their available
// commission. The partial unique index keeps at most one PENDING row per agent.
type WithdrawalRequest struct {
	ID              uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID         uuid.UUID              `gorm:"type:uuid;not null;index:idx_withdrawal_agent;uniqueIndex:idx_withdrawal_agent_pending,where:status = 'PENDING'" json:"agent_id"`
	Agent           *User                  `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Amount          decimal.Decimal        `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status          string                 `gorm:"type:varchar(20);not null;index" json:"status"`
	RequestedAt     time.Time              `gorm:"not null" json:"requested_at"`
	ApprovedBy      *uuid.UUID             `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt      *time.Time             `json:"approved_at"`
	RejectionReason string                 `gorm:"type:text" json:"rejection_reason"`
	Allocations     []WithdrawalAllocation `gorm:"foreignKey:WithdrawalID" json:"allocations,omitempty"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// Approved reports whether the request has been paid out.
func (w *WithdrawalRequest) Approved() bool {
	return w.Status == WithdrawalApproved
}

// WithdrawalAllocation records how much of an approved withdrawal was taken
// from each ledger entry.
type WithdrawalAllocation struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	WithdrawalID uuid.UUID       `gorm:"type:uuid;not null;index" json:"withdrawal_id"`
	CommissionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"commission_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
}
