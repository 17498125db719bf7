package repository

import (
	"context"

	"neelgund-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	// GetOrCreateLocked returns the (assignment, phase) payment row locked FOR
	// UPDATE, inserting an unpaid row first when none exists.
	GetOrCreateLocked(ctx context.Context, assignmentID, phaseID uuid.UUID) (*model.PhasePayment, error)
	Update(ctx context.Context, p *model.PhasePayment) error
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]model.PhasePayment, error)
	CountPaid(ctx context.Context, assignmentID uuid.UUID, phaseIDs []uuid.UUID) (int64, error)
	// CountReleased counts payments among phaseIDs that already released commission.
	CountReleased(ctx context.Context, assignmentID uuid.UUID, phaseIDs []uuid.UUID) (int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetOrCreateLocked(ctx context.Context, assignmentID, phaseID uuid.UUID) (*model.PhasePayment, error) {
	db := GetDB(ctx, r.db)

	fresh := model.PhasePayment{AssignmentID: assignmentID, PhaseID: phaseID}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "phase_id"}},
		DoNothing: true,
	}).Create(&fresh).Error
	if err != nil {
		return nil, err
	}

	var p model.PhasePayment
	err = forUpdate(db).
		Where("assignment_id = ? AND phase_id = ?", assignmentID, phaseID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *model.PhasePayment) error {
	return GetDB(ctx, r.db).Omit("Phase").Save(p).Error
}

func (r *paymentRepository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]model.PhasePayment, error) {
	var payments []model.PhasePayment
	err := GetDB(ctx, r.db).Preload("Phase").Where("assignment_id = ?", assignmentID).Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) CountPaid(ctx context.Context, assignmentID uuid.UUID, phaseIDs []uuid.UUID) (int64, error) {
	if len(phaseIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := GetDB(ctx, r.db).Model(&model.PhasePayment{}).
		Where("assignment_id = ? AND phase_id IN ? AND paid = ?", assignmentID, phaseIDs, true).
		Count(&n).Error
	return n, err
}

func (r *paymentRepository) CountReleased(ctx context.Context, assignmentID uuid.UUID, phaseIDs []uuid.UUID) (int64, error) {
	if len(phaseIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := GetDB(ctx, r.db).Model(&model.PhasePayment{}).
		Where("assignment_id = ? AND phase_id IN ?", assignmentID, phaseIDs).
		Where("released_at IS NOT NULL OR commission_released > 0").
		Count(&n).Error
	return n, err
}
