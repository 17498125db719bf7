package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PhasePayment tracks whether a buyer has paid one phase of a plot. There is at
// most one row per (assignment, phase); rows are created lazily and never deleted
// while the assignment exists.
type PhasePayment struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_payment_assignment_phase" json:"assignment_id"`
	PhaseID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_payment_assignment_phase" json:"phase_id"`
	Phase              *PaymentPhase   `gorm:"foreignKey:PhaseID" json:"phase,omitempty"`
	Paid               bool            `gorm:"not null" json:"paid"`
	PaidAt             *time.Time      `json:"paid_at"`
	BillNumber         string          `gorm:"type:varchar(100)" json:"bill_number"`
	Remarks            string          `gorm:"type:text" json:"remarks"`
	CommissionReleased decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"commission_released"`
	ReleasedAt         *time.Time      `json:"released_at"` // set once; a later re-pay never releases again
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
