package repository

import (
	"context"

	"neelgund-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WithdrawalRepository interface {
	Create(ctx context.Context, w *model.WithdrawalRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error)
	HasPending(ctx context.Context, agentID uuid.UUID) (bool, error)
	Update(ctx context.Context, w *model.WithdrawalRequest) error
	CreateAllocations(ctx context.Context, allocations []model.WithdrawalAllocation) error
	List(ctx context.Context, agentID *uuid.UUID, status string, offset, limit int) ([]model.WithdrawalRequest, int64, error)
}

type withdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) WithdrawalRepository {
	return &withdrawalRepository{db: db}
}

func (r *withdrawalRepository) Create(ctx context.Context, w *model.WithdrawalRequest) error {
	return GetDB(ctx, r.db).Create(w).Error
}

func (r *withdrawalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error) {
	var w model.WithdrawalRequest
	if err := GetDB(ctx, r.db).Preload("Agent").Preload("Allocations").First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *withdrawalRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error) {
	var w model.WithdrawalRequest
	if err := forUpdate(GetDB(ctx, r.db)).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *withdrawalRepository) HasPending(ctx context.Context, agentID uuid.UUID) (bool, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.WithdrawalRequest{}).
		Where("agent_id = ? AND status = ?", agentID, model.WithdrawalPending).
		Count(&n).Error
	return n > 0, err
}

func (r *withdrawalRepository) Update(ctx context.Context, w *model.WithdrawalRequest) error {
	return GetDB(ctx, r.db).Omit("Agent", "Allocations").Save(w).Error
}

func (r *withdrawalRepository) CreateAllocations(ctx context.Context, allocations []model.WithdrawalAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&allocations).Error
}

func (r *withdrawalRepository) List(ctx context.Context, agentID *uuid.UUID, status string, offset, limit int) ([]model.WithdrawalRequest, int64, error) {
	var requests []model.WithdrawalRequest
	var total int64

	filter := func(q *gorm.DB) *gorm.DB {
		if agentID != nil {
			q = q.Where("agent_id = ?", *agentID)
		}
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	db := GetDB(ctx, r.db)
	if err := filter(db.Model(&model.WithdrawalRequest{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := filter(db.Preload("Agent")).Order("requested_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}
