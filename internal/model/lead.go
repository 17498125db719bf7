package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"neelgund-backend/pkg/price"
)

// Lead status values. A lead's status is derived from its lead-projects.
const (
	LeadStatusNew        = "new"
	LeadStatusInProgress = "in_progress"
	LeadStatusClosed     = "closed"
	LeadStatusCancelled  = "cancelled"
)

// LeadProject status values, derived from the plot assignments.
const (
	LeadProjectStatusInterested = "interested"
	LeadProjectStatusInProgress = "in_progress"
	LeadProjectStatusClosed     = "closed"
	LeadProjectStatusCancelled  = "cancelled"
)

// PlotAssignment status values, set explicitly by callers.
const (
	AssignmentStatusBooked     = "booked"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusClosed     = "closed"
	AssignmentStatusCancelled  = "cancelled"
)

// Lead is a prospective buyer owned by an agent.
type Lead struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"agent_id"`
	FullName      string        `gorm:"type:varchar(150);not null" json:"full_name"`
	ContactNumber string        `gorm:"type:varchar(15)" json:"contact_number"`
	Email         string        `gorm:"type:varchar(255)" json:"email"`
	Status        string        `gorm:"type:varchar(30);not null" json:"status"`
	LeadProjects  []LeadProject `gorm:"foreignKey:LeadID" json:"lead_projects,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// LeadProject records a lead's interest in one project.
type LeadProject struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_lead_project" json:"lead_id"`
	Lead        *Lead            `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	ProjectID   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_lead_project" json:"project_id"`
	Project     *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Status      string           `gorm:"type:varchar(30);not null" json:"status"`
	Assignments []PlotAssignment `gorm:"foreignKey:LeadProjectID" json:"assignments,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// PlotAssignment reserves a plot for a lead-project. It owns one
// AgentCommission and one PhasePayment per paid phase.
type PlotAssignment struct {
	ID              uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	LeadProjectID   uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_lead_project_plot" json:"lead_project_id"`
	LeadProject     *LeadProject        `gorm:"foreignKey:LeadProjectID" json:"lead_project,omitempty"`
	PlotID          uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_lead_project_plot;index" json:"plot_id"`
	Plot            *Plot               `gorm:"foreignKey:PlotID" json:"plot,omitempty"`
	AgentID         uuid.UUID           `gorm:"type:uuid;not null;index" json:"agent_id"`
	OrderID         string              `gorm:"type:varchar(100);index" json:"order_id"` // groups plots booked together
	Status          string              `gorm:"type:varchar(30);not null;index" json:"status"`
	PaymentMode     string              `gorm:"type:varchar(20);not null" json:"payment_mode"`
	NegotiatedPrice decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"negotiated_price"`
	Remarks         string              `gorm:"type:text" json:"remarks"`
	AssignedAt      time.Time           `gorm:"not null" json:"assigned_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Commission      *AgentCommission    `gorm:"foreignKey:AssignmentID" json:"commission,omitempty"`
	Payments        []PhasePayment      `gorm:"foreignKey:AssignmentID" json:"payments,omitempty"`
}

// BasePrice is the negotiated price when one is set, otherwise the plot's
// list price. Plot must be loaded.
func (a *PlotAssignment) BasePrice() decimal.Decimal {
	if a.NegotiatedPrice.Valid {
		return a.NegotiatedPrice.Decimal
	}
	if a.Plot == nil {
		return decimal.Zero
	}
	return price.Parse(a.Plot.Price)
}

// IsValidAssignmentStatus reports whether s is an assignment status callers may set.
func IsValidAssignmentStatus(s string) bool {
	switch s {
	case AssignmentStatusBooked, AssignmentStatusInProgress, AssignmentStatusClosed, AssignmentStatusCancelled:
		return true
	}
	return false
}

// IsValidPaymentMode reports whether m is a known payment mode.
func IsValidPaymentMode(m string) bool {
	return m == PaymentModePhaseWise || m == PaymentModeFullPayment
}
