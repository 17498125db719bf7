package service

import (
	"context"
	"fmt"
	"time"

	"neelgund-backend/internal/repository"
	"neelgund-backend/pkg/pagination"
)

type RegisterDeviceDTO struct {
	Token string `json:"token" validate:"required,min=20,max=512"`
}

type NotificationResponse struct {
	ID        string                 `json:"id"`
	Kind      string                 `json:"kind"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt string                 `json:"created_at"`
}

type NotificationService interface {
	List(ctx context.Context, agentID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, agentID, id string) error
	RegisterDevice(ctx context.Context, agentID string, req RegisterDeviceDTO) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, agentID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	id, err := parseID("agent_id", agentID)
	if err != nil {
		return nil, 0, err
	}
	params := pagination.New(page, limit)
	items, total, err := s.repo.ListForAgent(ctx, id, unreadOnly, params.Offset, params.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	out := make([]NotificationResponse, len(items))
	for i, n := range items {
		out[i] = NotificationResponse{
			ID:        n.ID.String(),
			Kind:      n.Kind,
			Title:     n.Title,
			Body:      n.Body,
			Data:      n.Data,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
	}
	return out, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, agentID, id string) error {
	aID, err := parseID("agent_id", agentID)
	if err != nil {
		return err
	}
	nID, err := parseID("notification id", id)
	if err != nil {
		return err
	}
	ok, err := s.repo.MarkRead(ctx, aID, nID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return fmt.Errorf("notification %w", ErrNotFound)
	}
	return nil
}

func (s *notificationService) RegisterDevice(ctx context.Context, agentID string, req RegisterDeviceDTO) error {
	if err := validateDTO(req); err != nil {
		return err
	}
	id, err := parseID("agent_id", agentID)
	if err != nil {
		return err
	}
	if err := s.repo.SaveDeviceToken(ctx, id, req.Token); err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}
