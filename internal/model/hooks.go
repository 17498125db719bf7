package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are generated here rather than by a database default so the
// same models migrate on postgres and sqlite.

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (p *Project) BeforeCreate(*gorm.DB) error              { ensureID(&p.ID); return nil }
func (p *Plot) BeforeCreate(*gorm.DB) error                 { ensureID(&p.ID); return nil }
func (p *PaymentPhase) BeforeCreate(*gorm.DB) error         { ensureID(&p.ID); return nil }
func (l *Lead) BeforeCreate(*gorm.DB) error                 { ensureID(&l.ID); return nil }
func (l *LeadProject) BeforeCreate(*gorm.DB) error          { ensureID(&l.ID); return nil }
func (a *PlotAssignment) BeforeCreate(*gorm.DB) error       { ensureID(&a.ID); return nil }
func (p *PhasePayment) BeforeCreate(*gorm.DB) error         { ensureID(&p.ID); return nil }
func (c *AgentCommission) BeforeCreate(*gorm.DB) error      { ensureID(&c.ID); return nil }
func (w *WithdrawalRequest) BeforeCreate(*gorm.DB) error    { ensureID(&w.ID); return nil }
func (w *WithdrawalAllocation) BeforeCreate(*gorm.DB) error { ensureID(&w.ID); return nil }
func (u *User) BeforeCreate(*gorm.DB) error                 { ensureID(&u.ID); return nil }
func (d *DeviceToken) BeforeCreate(*gorm.DB) error          { ensureID(&d.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error         { ensureID(&n.ID); return nil }
