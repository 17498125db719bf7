package repository

import (
	"context"
	"strings"

	"neelgund-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeadRepository interface {
	CreateLead(ctx context.Context, lead *model.Lead) error
	FindLead(ctx context.Context, id uuid.UUID) (*model.Lead, error)
	// ListLeads pages through an agent's leads, newest first. search matches
	// name, phone or email case-insensitively.
	ListLeads(ctx context.Context, agentID uuid.UUID, search, status string, offset, limit int) ([]model.Lead, int64, error)
	// CountMatchingContacts counts leads of any agent sharing the phone or email.
	CountMatchingContacts(ctx context.Context, phone, email string) (int64, error)
	FindLeadProject(ctx context.Context, id uuid.UUID) (*model.LeadProject, error)
	CreateLeadProject(ctx context.Context, lp *model.LeadProject) error
	DeleteLeadProject(ctx context.Context, id uuid.UUID) error
	CountAssignments(ctx context.Context, leadProjectID uuid.UUID) (int64, error)
	AssignmentStatuses(ctx context.Context, leadProjectID uuid.UUID) ([]string, error)
	LeadProjectStatuses(ctx context.Context, leadID uuid.UUID) ([]string, error)
	SetLeadProjectStatus(ctx context.Context, id uuid.UUID, status string) error
	SetLeadStatus(ctx context.Context, id uuid.UUID, status string) error
}

type leadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) CreateLead(ctx context.Context, lead *model.Lead) error {
	return GetDB(ctx, r.db).Create(lead).Error
}

func (r *leadRepository) FindLead(ctx context.Context, id uuid.UUID) (*model.Lead, error) {
	var lead model.Lead
	if err := GetDB(ctx, r.db).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) ListLeads(ctx context.Context, agentID uuid.UUID, search, status string, offset, limit int) ([]model.Lead, int64, error) {
	var leads []model.Lead
	var total int64

	filter := func(q *gorm.DB) *gorm.DB {
		q = q.Where("agent_id = ?", agentID)
		if search != "" {
			like := "%" + strings.ToLower(search) + "%"
			q = q.Where("(LOWER(full_name) LIKE ? OR contact_number LIKE ? OR LOWER(email) LIKE ?)", like, like, like)
		}
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Lead{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Scopes(filter).Preload("LeadProjects").Order("created_at DESC").Offset(offset).Limit(limit).Find(&leads).Error
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func (r *leadRepository) CountMatchingContacts(ctx context.Context, phone, email string) (int64, error) {
	if phone == "" && email == "" {
		return 0, nil
	}
	query := GetDB(ctx, r.db).Model(&model.Lead{})
	switch {
	case phone != "" && email != "":
		query = query.Where("contact_number = ? OR LOWER(email) = ?", phone, strings.ToLower(email))
	case phone != "":
		query = query.Where("contact_number = ?", phone)
	default:
		query = query.Where("LOWER(email) = ?", strings.ToLower(email))
	}
	var n int64
	err := query.Count(&n).Error
	return n, err
}

func (r *leadRepository) FindLeadProject(ctx context.Context, id uuid.UUID) (*model.LeadProject, error) {
	var lp model.LeadProject
	if err := GetDB(ctx, r.db).Preload("Lead").First(&lp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lp, nil
}

func (r *leadRepository) CreateLeadProject(ctx context.Context, lp *model.LeadProject) error {
	return GetDB(ctx, r.db).Create(lp).Error
}

func (r *leadRepository) DeleteLeadProject(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.LeadProject{}).Error
}

func (r *leadRepository) CountAssignments(ctx context.Context, leadProjectID uuid.UUID) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.PlotAssignment{}).Where("lead_project_id = ?", leadProjectID).Count(&n).Error
	return n, err
}

func (r *leadRepository) AssignmentStatuses(ctx context.Context, leadProjectID uuid.UUID) ([]string, error) {
	var statuses []string
	err := GetDB(ctx, r.db).Model(&model.PlotAssignment{}).
		Where("lead_project_id = ?", leadProjectID).
		Pluck("status", &statuses).Error
	return statuses, err
}

func (r *leadRepository) LeadProjectStatuses(ctx context.Context, leadID uuid.UUID) ([]string, error) {
	var statuses []string
	err := GetDB(ctx, r.db).Model(&model.LeadProject{}).
		Where("lead_id = ?", leadID).
		Pluck("status", &statuses).Error
	return statuses, err
}

func (r *leadRepository) SetLeadProjectStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.LeadProject{}).Where("id = ?", id).Update("status", status).Error
}

func (r *leadRepository) SetLeadStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Lead{}).Where("id = ?", id).Update("status", status).Error
}
