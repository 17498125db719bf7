package repository

import (
	"context"

	"neelgund-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentRepository interface {
	Create(ctx context.Context, a *model.PlotAssignment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PlotAssignment, error)
	// LockByID loads the assignment FOR UPDATE with its plot and project.
	LockByID(ctx context.Context, id uuid.UUID) (*model.PlotAssignment, error)
	Update(ctx context.Context, a *model.PlotAssignment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByAgent(ctx context.Context, agentID uuid.UUID, status string, offset, limit int) ([]model.PlotAssignment, int64, error)
	ActiveForPlot(ctx context.Context, plotID, excludeID uuid.UUID) (int64, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, a *model.PlotAssignment) error {
	return GetDB(ctx, r.db).Create(a).Error
}

func (r *assignmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PlotAssignment, error) {
	var a model.PlotAssignment
	err := GetDB(ctx, r.db).
		Preload("Plot.Project").
		Preload("LeadProject.Lead").
		Preload("Commission").
		Preload("Payments.Phase").
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.PlotAssignment, error) {
	var a model.PlotAssignment
	if err := forUpdate(GetDB(ctx, r.db)).Preload("Plot.Project").First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepository) Update(ctx context.Context, a *model.PlotAssignment) error {
	return GetDB(ctx, r.db).Omit("Plot", "LeadProject", "Commission", "Payments").Save(a).Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("assignment_id = ?", id).Delete(&model.PhasePayment{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.PlotAssignment{}).Error
}

func (r *assignmentRepository) ListByAgent(ctx context.Context, agentID uuid.UUID, status string, offset, limit int) ([]model.PlotAssignment, int64, error) {
	var assignments []model.PlotAssignment
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.PlotAssignment{}).Where("agent_id = ?", agentID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := db.Preload("Plot.Project").Preload("Commission").Where("agent_id = ?", agentID)
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if err := fetch.Order("assigned_at DESC").Offset(offset).Limit(limit).Find(&assignments).Error; err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}

// ActiveForPlot counts assignments of the plot, other than excludeID, that are not cancelled.
func (r *assignmentRepository) ActiveForPlot(ctx context.Context, plotID, excludeID uuid.UUID) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.PlotAssignment{}).
		Where("plot_id = ? AND id <> ? AND status <> ?", plotID, excludeID, model.AssignmentStatusCancelled).
		Count(&n).Error
	return n, err
}
