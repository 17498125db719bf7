package repository

import (
	"context"

	"neelgund-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForAgent(ctx context.Context, agentID uuid.UUID, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, agentID, id uuid.UUID) (bool, error)

	DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	SaveDeviceToken(ctx context.Context, userID uuid.UUID, token string) error
	DeleteDeviceToken(ctx context.Context, token string) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Create(n).Error
}

func (r *notificationRepository) ListForAgent(ctx context.Context, agentID uuid.UUID, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var items []model.Notification
	var total int64

	db := GetDB(ctx, r.db)
	filter := func(q *gorm.DB) *gorm.DB {
		q = q.Where("agent_id = ?", agentID)
		if unreadOnly {
			q = q.Where("is_read = ?", false)
		}
		return q
	}
	if err := filter(db.Model(&model.Notification{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := filter(db).Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, agentID, id uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("id = ? AND agent_id = ?", id, agentID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

func (r *notificationRepository) DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var tokens []string
	err := GetDB(ctx, r.db).Model(&model.DeviceToken{}).Where("user_id = ?", userID).Pluck("token", &tokens).Error
	return tokens, err
}

// SaveDeviceToken registers token for userID, moving it over if another user had it.
func (r *notificationRepository) SaveDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	db := GetDB(ctx, r.db)
	var existing model.DeviceToken
	err := db.Where("token = ?", token).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(&model.DeviceToken{UserID: userID, Token: token}).Error
	}
	if err != nil {
		return err
	}
	if existing.UserID == userID {
		return nil
	}
	return db.Model(&existing).Update("user_id", userID).Error
}

func (r *notificationRepository) DeleteDeviceToken(ctx context.Context, token string) error {
	return GetDB(ctx, r.db).Where("token = ?", token).Delete(&model.DeviceToken{}).Error
}
