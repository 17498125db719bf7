package repository

import (
	"context"

	"neelgund-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// availableExpr is max(0, withdrawable - withdrawn) per row.
const availableExpr = "CASE WHEN withdrawable_amount > withdrawn_amount THEN withdrawable_amount - withdrawn_amount ELSE 0 END"

// EarningTotals aggregates an agent's ledger entries.
type EarningTotals struct {
	Entries   int64           `gorm:"column:entries"`
	Total     decimal.Decimal `gorm:"column:total"`
	Released  decimal.Decimal `gorm:"column:released"`
	Withdrawn decimal.Decimal `gorm:"column:withdrawn"`
	Available decimal.Decimal `gorm:"column:available"`
}

// AgentRankingRow is one line of the earnings leaderboard.
type AgentRankingRow struct {
	AgentID   uuid.UUID       `gorm:"column:agent_id"`
	AgentName string          `gorm:"column:agent_name"`
	Plots     int64           `gorm:"column:plots"`
	Total     decimal.Decimal `gorm:"column:total"`
	Released  decimal.Decimal `gorm:"column:released"`
}

type CommissionRepository interface {
	Create(ctx context.Context, c *model.AgentCommission) error
	FindByAssignment(ctx context.Context, assignmentID uuid.UUID) (*model.AgentCommission, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.AgentCommission, error)
	Update(ctx context.Context, c *model.AgentCommission) error
	Delete(ctx context.Context, id uuid.UUID) error
	SumAvailable(ctx context.Context, agentID uuid.UUID) (decimal.Decimal, error)
	// LockWithAvailable returns the agent's entries that still have money to
	// withdraw, oldest first, locked FOR UPDATE.
	LockWithAvailable(ctx context.Context, agentID uuid.UUID) ([]model.AgentCommission, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]model.AgentCommission, error)
	Totals(ctx context.Context, agentID uuid.UUID) (EarningTotals, error)
	TopAgents(ctx context.Context, limit int) ([]AgentRankingRow, error)
}

type commissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepository{db: db}
}

func (r *commissionRepository) Create(ctx context.Context, c *model.AgentCommission) error {
	return GetDB(ctx, r.db).Create(c).Error
}

func (r *commissionRepository) FindByAssignment(ctx context.Context, assignmentID uuid.UUID) (*model.AgentCommission, error) {
	var c model.AgentCommission
	if err := GetDB(ctx, r.db).First(&c, "assignment_id = ?", assignmentID).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commissionRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.AgentCommission, error) {
	var c model.AgentCommission
	if err := forUpdate(GetDB(ctx, r.db)).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commissionRepository) Update(ctx context.Context, c *model.AgentCommission) error {
	return GetDB(ctx, r.db).Model(c).Updates(map[string]interface{}{
		"total_commission":    c.TotalCommission,
		"withdrawable_amount": c.WithdrawableAmount,
		"withdrawn_amount":    c.WithdrawnAmount,
	}).Error
}

func (r *commissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.AgentCommission{}).Error
}

func (r *commissionRepository) SumAvailable(ctx context.Context, agentID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := GetDB(ctx, r.db).Model(&model.AgentCommission{}).
		Select("SUM("+availableExpr+")").
		Where("agent_id = ?", agentID).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}

func (r *commissionRepository) LockWithAvailable(ctx context.Context, agentID uuid.UUID) ([]model.AgentCommission, error) {
	var entries []model.AgentCommission
	err := forUpdate(GetDB(ctx, r.db)).
		Where("agent_id = ? AND withdrawable_amount > withdrawn_amount", agentID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *commissionRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]model.AgentCommission, error) {
	var entries []model.AgentCommission
	err := GetDB(ctx, r.db).Preload("Project").
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *commissionRepository) Totals(ctx context.Context, agentID uuid.UUID) (EarningTotals, error) {
	var t EarningTotals
	err := GetDB(ctx, r.db).Model(&model.AgentCommission{}).
		Select(`COUNT(*) AS entries,
			COALESCE(SUM(total_commission), 0) AS total,
			COALESCE(SUM(withdrawable_amount), 0) AS released,
			COALESCE(SUM(withdrawn_amount), 0) AS withdrawn,
			COALESCE(SUM(`+availableExpr+`), 0) AS available`).
		Where("agent_id = ?", agentID).
		Scan(&t).Error
	if err != nil {
		return EarningTotals{}, err
	}
	t.Total = t.Total.Round(2)
	t.Released = t.Released.Round(2)
	t.Withdrawn = t.Withdrawn.Round(2)
	t.Available = t.Available.Round(2)
	return t, nil
}

func (r *commissionRepository) TopAgents(ctx context.Context, limit int) ([]AgentRankingRow, error) {
	var rows []AgentRankingRow
	err := GetDB(ctx, r.db).Table("agent_commissions").
		Select(`agent_commissions.agent_id AS agent_id,
			users.full_name AS agent_name,
			COUNT(agent_commissions.id) AS plots,
			COALESCE(SUM(agent_commissions.total_commission), 0) AS total,
			COALESCE(SUM(agent_commissions.withdrawable_amount), 0) AS released`).
		Joins("JOIN users ON users.id = agent_commissions.agent_id").
		Group("agent_commissions.agent_id, users.full_name").
		Order("total DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
		rows[i].Released = rows[i].Released.Round(2)
	}
	return rows, nil
}
