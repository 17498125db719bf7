package service

import (
	"context"
	"fmt"
	"strings"

	"neelgund-backend/internal/model"
	"neelgund-backend/internal/repository"
	"neelgund-backend/pkg/pagination"
)

// CreateUserDTO registers an agent or admin profile. Credentials are issued by
// the external auth service against the same id.
type CreateUserDTO struct {
	FullName string `json:"full_name" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
	Role     string `json:"role" validate:"required,oneof=agent admin"`
}

type UserResponse struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Approved  bool   `json:"approved"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// UserService is the directory of agents and admins
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserDTO) (*UserResponse, error)
	GetUser(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, role string, page, limit int) ([]UserResponse, int64, error)
	SetApproved(ctx context.Context, id string, approved bool) (*UserResponse, error)
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func mapUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID.String(),
		FullName:  user.FullName,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		Approved:  user.Approved,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserDTO) (*UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateDTO(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email %s already registered: %w", req.Email, ErrInvalidInput)
	}

	user := &model.User{
		FullName: strings.TrimSpace(req.FullName),
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
		// Admins are trusted on creation; agents wait for approval.
		Approved: req.Role == model.RoleAdmin,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("email %s already registered: %w", req.Email, ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return mapUserResponse(user), nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := parseID("user_id", id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound("user", err)
	}
	return mapUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, role string, page, limit int) ([]UserResponse, int64, error) {
	params := pagination.New(page, limit)
	if role == "" {
		role = model.RoleAgent
	}
	if role != model.RoleAgent && role != model.RoleAdmin {
		return nil, 0, fmt.Errorf("unknown role %q: %w", role, ErrInvalidInput)
	}

	users, total, err := s.repo.ListByRole(ctx, role, params.Offset, params.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) SetApproved(ctx context.Context, id string, approved bool) (*UserResponse, error) {
	userID, err := parseID("user_id", id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound("user", err)
	}
	if user.Role != model.RoleAgent {
		return nil, fmt.Errorf("only agents need approval: %w", ErrInvalidStateTransition)
	}

	user.Approved = approved
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return mapUserResponse(user), nil
}
