package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification is a stored copy of every message pushed to an agent.
type Notification struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_notification_agent_read" json:"agent_id"`
	Kind      string            `gorm:"type:varchar(50);not null" json:"kind"`
	Title     string            `gorm:"type:varchar(255);not null" json:"title"`
	Body      string            `gorm:"type:text" json:"body"`
	Data      datatypes.JSONMap `json:"data"`
	IsRead    bool              `gorm:"not null;index:idx_notification_agent_read" json:"is_read"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
}
