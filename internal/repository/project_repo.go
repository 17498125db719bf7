package repository

import (
	"context"

	"neelgund-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectRepository is the read side of projects, plots and payment phases,
// plus the one write the ledger needs: plot availability.
type ProjectRepository interface {
	FindProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	FindPlot(ctx context.Context, id uuid.UUID) (*model.Plot, error)
	LockPlot(ctx context.Context, id uuid.UUID) (*model.Plot, error)
	SetPlotAvailable(ctx context.Context, id uuid.UUID, available bool) error
	FindPhase(ctx context.Context, id uuid.UUID) (*model.PaymentPhase, error)
	ListPhases(ctx context.Context, projectID uuid.UUID) ([]model.PaymentPhase, error)
	ListPlots(ctx context.Context, projectID uuid.UUID, onlyAvailable bool) ([]model.Plot, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) FindProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := GetDB(ctx, r.db).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) FindPlot(ctx context.Context, id uuid.UUID) (*model.Plot, error) {
	var plot model.Plot
	if err := GetDB(ctx, r.db).Preload("Project").First(&plot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plot, nil
}

func (r *projectRepository) LockPlot(ctx context.Context, id uuid.UUID) (*model.Plot, error) {
	var plot model.Plot
	if err := forUpdate(GetDB(ctx, r.db)).First(&plot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plot, nil
}

func (r *projectRepository) SetPlotAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	return GetDB(ctx, r.db).Model(&model.Plot{}).Where("id = ?", id).Update("is_available", available).Error
}

func (r *projectRepository) FindPhase(ctx context.Context, id uuid.UUID) (*model.PaymentPhase, error) {
	var phase model.PaymentPhase
	if err := GetDB(ctx, r.db).First(&phase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &phase, nil
}

func (r *projectRepository) ListPhases(ctx context.Context, projectID uuid.UUID) ([]model.PaymentPhase, error) {
	var phases []model.PaymentPhase
	err := GetDB(ctx, r.db).
		Where("project_id = ?", projectID).
		Order("order_index ASC").
		Find(&phases).Error
	return phases, err
}

func (r *projectRepository) ListPlots(ctx context.Context, projectID uuid.UUID, onlyAvailable bool) ([]model.Plot, error) {
	var plots []model.Plot
	query := GetDB(ctx, r.db).Where("project_id = ?", projectID)
	if onlyAvailable {
		query = query.Where("is_available = ?", true)
	}
	err := query.Order("plot_no ASC").Find(&plots).Error
	return plots, err
}
