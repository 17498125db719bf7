package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"neelgund-backend/internal/model"
	"neelgund-backend/internal/repository"

	"gorm.io/datatypes"
)

func TestNotificationService(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := repository.NewNotificationRepository(db)
	svc := NewNotificationService(repo)

	agent := model.User{FullName: "Asha", Email: "asha@example.com", Role: model.RoleAgent}
	other := model.User{FullName: "Bala", Email: "bala@example.com", Role: model.RoleAgent}
	mustCreate(t, db, &agent)
	mustCreate(t, db, &other)

	for _, title := range []string{"Plot booked", "Payment phase updated"} {
		if err := repo.Create(ctx, &model.Notification{
			AgentID: agent.ID,
			Kind:    "phase_released",
			Title:   title,
			Data:    datatypes.JSONMap{"amount": "80000.00"},
		}); err != nil {
			t.Fatal(err)
		}
	}

	items, total, err := svc.List(ctx, agent.ID.String(), true, 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(items) != 2 || items[0].Data["amount"] != "80000.00" {
		t.Fatalf("List = %+v, total %d", items, total)
	}

	if err := svc.MarkRead(ctx, other.ID.String(), items[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkRead by another agent: err = %v, want ErrNotFound", err)
	}
	if err := svc.MarkRead(ctx, agent.ID.String(), items[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if _, total, _ := svc.List(ctx, agent.ID.String(), true, 1, 10); total != 1 {
		t.Errorf("unread after MarkRead = %d, want 1", total)
	}
}

func TestRegisterDevice_MovesTokenBetweenUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := repository.NewNotificationRepository(db)
	svc := NewNotificationService(repo)

	first := model.User{FullName: "Asha", Email: "asha@example.com", Role: model.RoleAgent}
	second := model.User{FullName: "Bala", Email: "bala@example.com", Role: model.RoleAgent}
	mustCreate(t, db, &first)
	mustCreate(t, db, &second)

	token := strings.Repeat("f", 40)
	if err := svc.RegisterDevice(ctx, first.ID.String(), RegisterDeviceDTO{Token: token}); err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}
	if err := svc.RegisterDevice(ctx, first.ID.String(), RegisterDeviceDTO{Token: token}); err != nil {
		t.Fatalf("RegisterDevice again: %v", err)
	}
	if err := svc.RegisterDevice(ctx, second.ID.String(), RegisterDeviceDTO{Token: token}); err != nil {
		t.Fatalf("RegisterDevice for second user: %v", err)
	}

	if tokens, _ := repo.DeviceTokens(ctx, first.ID); len(tokens) != 0 {
		t.Errorf("first user still has %v", tokens)
	}
	if tokens, _ := repo.DeviceTokens(ctx, second.ID); len(tokens) != 1 {
		t.Errorf("second user tokens = %v", tokens)
	}

	if err := svc.RegisterDevice(ctx, first.ID.String(), RegisterDeviceDTO{Token: "short"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short token: err = %v, want ErrInvalidInput", err)
	}
}
