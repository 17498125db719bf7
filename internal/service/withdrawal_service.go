package service

import (
	"context"
	"fmt"
	"time"

	"neelgund-backend/internal/event"
	"neelgund-backend/internal/model"
	"neelgund-backend/internal/repository"
	"neelgund-backend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type RequestWithdrawalDTO struct {
	AgentID string          `json:"agent_id" validate:"required,uuid"`
	Amount  decimal.Decimal `json:"amount"`
}

type WithdrawalFilter struct {
	AgentID string
	Status  string // PENDING, APPROVED, REJECTED or empty for all
	Page    int
	Limit   int
}

type RejectWithdrawalDTO struct {
	Reason string `json:"reason" validate:"max=500"`
}

type WithdrawalAllocationResponse struct {
	CommissionID string          `json:"commission_id"`
	Amount       decimal.Decimal `json:"amount"`
}

type WithdrawalResponse struct {
	ID              string                         `json:"id"`
	AgentID         string                         `json:"agent_id"`
	AgentName       string                         `json:"agent_name"`
	Amount          decimal.Decimal                `json:"amount"`
	Status          string                         `json:"status"`
	Approved        bool                           `json:"approved"`
	RequestedAt     string                         `json:"requested_at"`
	ApprovedBy      *string                        `json:"approved_by"`
	ApprovedAt      *string                        `json:"approved_at"`
	RejectionReason string                         `json:"rejection_reason"`
	Allocations     []WithdrawalAllocationResponse `json:"allocations,omitempty"`
	Events          []event.Event                  `json:"-"`
}

// --- Interface ---

type WithdrawalService interface {
	Request(ctx context.Context, req RequestWithdrawalDTO) (WithdrawalResponse, error)
	// Approve pays the request out of the agent's ledger entries. Approving an
	// approved request changes nothing and returns it with ErrAlreadyApproved.
	Approve(ctx context.Context, id, approverID string) (WithdrawalResponse, error)
	Reject(ctx context.Context, id, approverID string, reason string) (WithdrawalResponse, error)
	Get(ctx context.Context, id string) (WithdrawalResponse, error)
	List(ctx context.Context, filter WithdrawalFilter) ([]WithdrawalResponse, int64, error)
}

type withdrawalService struct {
	txm         repository.TransactionManager
	ledger      CommissionLedger
	withdrawals repository.WithdrawalRepository
	commissions repository.CommissionRepository
	events      event.Publisher
}

func NewWithdrawalService(
	txm repository.TransactionManager,
	ledger CommissionLedger,
	withdrawals repository.WithdrawalRepository,
	commissions repository.CommissionRepository,
	events event.Publisher,
) WithdrawalService {
	if events == nil {
		events = event.Discard
	}
	return &withdrawalService{txm: txm, ledger: ledger, withdrawals: withdrawals, commissions: commissions, events: events}
}

// --- Implementation ---

func (s *withdrawalService) Request(ctx context.Context, req RequestWithdrawalDTO) (WithdrawalResponse, error) {
	if err := validateDTO(req); err != nil {
		return WithdrawalResponse{}, err
	}
	agentID, err := parseID("agent_id", req.AgentID)
	if err != nil {
		return WithdrawalResponse{}, err
	}
	// Amounts below one paisa round to zero and are rejected with it.
	amount := req.Amount.Round(2)
	if err := positive("amount", amount); err != nil {
		return WithdrawalResponse{}, err
	}

	var w model.WithdrawalRequest
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		pending, err := s.withdrawals.HasPending(txCtx, agentID)
		if err != nil {
			return fmt.Errorf("failed to check pending withdrawals: %w", err)
		}
		if pending {
			return ErrDuplicatePendingRequest
		}

		available, err := s.ledger.SumAvailable(txCtx, agentID)
		if err != nil {
			return fmt.Errorf("failed to sum available commission: %w", err)
		}
		if amount.GreaterThan(available) {
			return fmt.Errorf("requested %s, available %s: %w", amount.StringFixed(2), available.StringFixed(2), ErrInsufficientBalance)
		}

		w = model.WithdrawalRequest{
			AgentID:     agentID,
			Amount:      amount,
			Status:      model.WithdrawalPending,
			RequestedAt: time.Now(),
		}
		if err := s.withdrawals.Create(txCtx, &w); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrDuplicatePendingRequest
			}
			return fmt.Errorf("failed to create withdrawal request: %w", err)
		}
		return nil
	})
	if err != nil {
		return WithdrawalResponse{}, err
	}

	resp := toWithdrawalResponse(w)
	resp.Events = []event.Event{{
		Kind:         event.WithdrawalRequested,
		AgentID:      agentID,
		WithdrawalID: w.ID,
		Amount:       w.Amount,
		OccurredAt:   w.RequestedAt,
	}}
	s.events.Publish(resp.Events...)
	return resp, nil
}

func (s *withdrawalService) Approve(ctx context.Context, id, approverID string) (WithdrawalResponse, error) {
	wID, err := parseID("withdrawal id", id)
	if err != nil {
		return WithdrawalResponse{}, err
	}
	approver, err := parseID("approver id", approverID)
	if err != nil {
		return WithdrawalResponse{}, err
	}

	alreadyApproved := false
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		w, err := s.withdrawals.LockByID(txCtx, wID)
		if err != nil {
			return notFound("withdrawal request", err)
		}
		switch w.Status {
		case model.WithdrawalApproved:
			alreadyApproved = true
			return nil
		case model.WithdrawalRejected:
			return fmt.Errorf("withdrawal request was rejected: %w", ErrInvalidStateTransition)
		}

		entries, err := s.commissions.LockWithAvailable(txCtx, w.AgentID)
		if err != nil {
			return fmt.Errorf("failed to lock commissions: %w", err)
		}
		available := decimal.Zero
		for _, e := range entries {
			available = available.Add(e.Available())
		}
		if w.Amount.GreaterThan(available) {
			return fmt.Errorf("requested %s, available %s: %w", w.Amount.StringFixed(2), available.StringFixed(2), ErrInsufficientBalance)
		}

		remaining := w.Amount
		allocations := make([]model.WithdrawalAllocation, 0, len(entries))
		for _, e := range entries {
			if !remaining.IsPositive() {
				break
			}
			take := decimal.Min(e.Available(), remaining)
			if err := s.ledger.RecordWithdrawal(txCtx, e.ID, take); err != nil {
				return err
			}
			allocations = append(allocations, model.WithdrawalAllocation{
				WithdrawalID: w.ID,
				CommissionID: e.ID,
				Amount:       take,
			})
			remaining = remaining.Sub(take)
		}
		if err := s.withdrawals.CreateAllocations(txCtx, allocations); err != nil {
			return fmt.Errorf("failed to record allocations: %w", err)
		}

		stamp := time.Now()
		w.Status = model.WithdrawalApproved
		w.ApprovedAt = &stamp
		w.ApprovedBy = &approver
		if err := s.withdrawals.Update(txCtx, w); err != nil {
			return fmt.Errorf("failed to approve withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return WithdrawalResponse{}, err
	}

	resp, err := s.Get(ctx, id)
	if err != nil {
		return WithdrawalResponse{}, err
	}
	if alreadyApproved {
		return resp, ErrAlreadyApproved
	}

	resp.Events = []event.Event{{
		Kind:         event.WithdrawalApproved,
		AgentID:      uuid.MustParse(resp.AgentID),
		WithdrawalID: wID,
		Amount:       resp.Amount,
		OccurredAt:   time.Now(),
	}}
	s.events.Publish(resp.Events...)
	return resp, nil
}

func (s *withdrawalService) Reject(ctx context.Context, id, approverID string, reason string) (WithdrawalResponse, error) {
	if err := validateDTO(RejectWithdrawalDTO{Reason: reason}); err != nil {
		return WithdrawalResponse{}, err
	}
	wID, err := parseID("withdrawal id", id)
	if err != nil {
		return WithdrawalResponse{}, err
	}
	approver, err := parseID("approver id", approverID)
	if err != nil {
		return WithdrawalResponse{}, err
	}

	var agentID uuid.UUID
	var amount decimal.Decimal
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		w, err := s.withdrawals.LockByID(txCtx, wID)
		if err != nil {
			return notFound("withdrawal request", err)
		}
		if w.Status != model.WithdrawalPending {
			return fmt.Errorf("withdrawal request is %s: %w", w.Status, ErrInvalidStateTransition)
		}
		stamp := time.Now()
		w.Status = model.WithdrawalRejected
		w.ApprovedAt = &stamp
		w.ApprovedBy = &approver
		w.RejectionReason = reason
		agentID, amount = w.AgentID, w.Amount
		return s.withdrawals.Update(txCtx, w)
	})
	if err != nil {
		return WithdrawalResponse{}, err
	}

	resp, err := s.Get(ctx, id)
	if err != nil {
		return WithdrawalResponse{}, err
	}
	resp.Events = []event.Event{{
		Kind:         event.WithdrawalRejected,
		AgentID:      agentID,
		WithdrawalID: wID,
		Amount:       amount,
		Reason:       reason,
		OccurredAt:   time.Now(),
	}}
	s.events.Publish(resp.Events...)
	return resp, nil
}

func (s *withdrawalService) Get(ctx context.Context, id string) (WithdrawalResponse, error) {
	wID, err := parseID("withdrawal id", id)
	if err != nil {
		return WithdrawalResponse{}, err
	}
	w, err := s.withdrawals.FindByID(ctx, wID)
	if err != nil {
		return WithdrawalResponse{}, notFound("withdrawal request", err)
	}
	return toWithdrawalResponse(*w), nil
}

func (s *withdrawalService) List(ctx context.Context, filter WithdrawalFilter) ([]WithdrawalResponse, int64, error) {
	params := pagination.New(filter.Page, filter.Limit)

	var agentID *uuid.UUID
	if filter.AgentID != "" {
		parsed, err := parseID("agent_id", filter.AgentID)
		if err != nil {
			return nil, 0, err
		}
		agentID = &parsed
	}

	requests, total, err := s.withdrawals.List(ctx, agentID, filter.Status, params.Offset, params.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}

	result := make([]WithdrawalResponse, len(requests))
	for i, w := range requests {
		result[i] = toWithdrawalResponse(w)
	}
	return result, total, nil
}

// --- Mapper ---

func toWithdrawalResponse(w model.WithdrawalRequest) WithdrawalResponse {
	resp := WithdrawalResponse{
		ID:              w.ID.String(),
		AgentID:         w.AgentID.String(),
		Amount:          w.Amount,
		Status:          w.Status,
		Approved:        w.Approved(),
		RequestedAt:     w.RequestedAt.Format(time.RFC3339),
		RejectionReason: w.RejectionReason,
	}
	if w.Agent != nil {
		resp.AgentName = w.Agent.FullName
	}
	if w.ApprovedBy != nil {
		by := w.ApprovedBy.String()
		resp.ApprovedBy = &by
	}
	if w.ApprovedAt != nil {
		at := w.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &at
	}
	for _, a := range w.Allocations {
		resp.Allocations = append(resp.Allocations, WithdrawalAllocationResponse{
			CommissionID: a.CommissionID.String(),
			Amount:       a.Amount,
		})
	}
	return resp
}
