package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMode enum constants
const (
	PaymentModePhaseWise   = "phase_wise"
	PaymentModeFullPayment = "full_payment"
)

// Due window tags for a payment phase
const (
	DueImmediate = "immediate"
	Due30Days    = "30_days"
	Due60Days    = "60_days"
	Due90Days    = "90_days"
	Due120Days   = "120_days"
	DueCustom    = "custom"
)

// Project is a real-estate project whose plots are sold by agents.
type Project struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Code                 string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name                 string          `gorm:"type:varchar(255);not null" json:"name"`
	Location             string          `gorm:"type:varchar(255)" json:"location"`
	CommissionPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_percentage"`
	CurrentPhaseID       *uuid.UUID      `gorm:"type:uuid" json:"current_phase_id"` // construction milestone reached so far
	Phases               []PaymentPhase  `gorm:"foreignKey:ProjectID" json:"phases,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Plot is a single sellable unit. Price holds the shorthand the sales team
// entered ("80L", "1.2Cr").
type Plot struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	Project     *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	PlotNo      string          `gorm:"type:varchar(50);not null" json:"plot_no"`
	Size        string          `gorm:"type:varchar(100)" json:"size"`
	AreaSq      decimal.Decimal `gorm:"type:decimal(10,2)" json:"area_sq"`
	Price       string          `gorm:"type:varchar(20);not null" json:"price"`
	IsAvailable bool            `gorm:"not null;index" json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PaymentPhase is one installment of a project's payment schedule.
type PaymentPhase struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_phase_project_order" json:"project_id"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"`
	Percentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	Mode       string          `gorm:"type:varchar(20);not null" json:"mode"` // phase_wise, full_payment
	Due        string          `gorm:"type:varchar(20);not null" json:"due"`
	DueDays    int             `gorm:"type:int;not null;default:0" json:"due_days"` // only read when Due is custom
	OrderIndex int             `gorm:"type:int;not null;uniqueIndex:idx_phase_project_order" json:"order_index"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
