package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"neelgund-backend/internal/event"
	"neelgund-backend/internal/model"
	"neelgund-backend/internal/repository"
	"neelgund-backend/pkg/pagination"
	"neelgund-backend/pkg/price"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type AssignPlotDTO struct {
	PlotID        string `json:"plot_id" validate:"required,uuid"`
	LeadProjectID string `json:"lead_project_id" validate:"required,uuid"`
	AgentID       string `json:"agent_id" validate:"required,uuid"`
	OrderID       string `json:"order_id" validate:"max=100"` // plots booked together share one
	Remarks       string `json:"remarks" validate:"max=2000"`
}

type MarkPhasePaidDTO struct {
	AssignmentID string `json:"assignment_id" validate:"required,uuid"`
	PhaseID      string `json:"phase_id" validate:"required,uuid"`
	BillNumber   string `json:"bill_number" validate:"max=100"`
	Remarks      string `json:"remarks" validate:"max=2000"`
}

// UpdatePhasePaymentDTO edits a payment row. Nil fields are left as they are.
type UpdatePhasePaymentDTO struct {
	AssignmentID string  `json:"assignment_id" validate:"required,uuid"`
	PhaseID      string  `json:"phase_id" validate:"required,uuid"`
	Paid         *bool   `json:"paid"`
	BillNumber   *string `json:"bill_number" validate:"omitempty,max=100"`
	Remarks      *string `json:"remarks" validate:"omitempty,max=2000"`
}

type NegotiatePriceDTO struct {
	AssignmentID string `json:"assignment_id" validate:"required,uuid"`
	Price        string `json:"price" validate:"required,max=30"`
	PaymentMode  string `json:"payment_mode" validate:"omitempty,oneof=phase_wise full_payment"`
}

type SetAssignmentStatusDTO struct {
	Status  string  `json:"status" validate:"required,oneof=booked in_progress closed cancelled"`
	Remarks *string `json:"remarks" validate:"omitempty,max=2000"`
}

type CommissionResponse struct {
	ID           string          `json:"id"`
	Total        decimal.Decimal `json:"total_commission"`
	Withdrawable decimal.Decimal `json:"withdrawable_amount"`
	Withdrawn    decimal.Decimal `json:"withdrawn_amount"`
	Available    decimal.Decimal `json:"available"`
}

type AssignmentResponse struct {
	ID              string              `json:"id"`
	LeadProjectID   string              `json:"lead_project_id"`
	LeadName        string              `json:"lead_name,omitempty"`
	PlotID          string              `json:"plot_id"`
	PlotNo          string              `json:"plot_no"`
	ProjectID       string              `json:"project_id"`
	ProjectName     string              `json:"project_name"`
	AgentID         string              `json:"agent_id"`
	OrderID         string              `json:"order_id"`
	Status          string              `json:"status"`
	PaymentMode     string              `json:"payment_mode"`
	ListPrice       string              `json:"list_price"`
	NegotiatedPrice *decimal.Decimal    `json:"negotiated_price"`
	BasePrice       decimal.Decimal     `json:"base_price"`
	Remarks         string              `json:"remarks"`
	Commission      *CommissionResponse `json:"commission,omitempty"`
	AssignedAt      string              `json:"assigned_at"`
	Events          []event.Event       `json:"-"`
}

type PhasePaymentResponse struct {
	ID                 string          `json:"id"`
	AssignmentID       string          `json:"assignment_id"`
	PhaseID            string          `json:"phase_id"`
	PhaseName          string          `json:"phase_name"`
	Paid               bool            `json:"paid"`
	PaidAt             *string         `json:"paid_at"`
	BillNumber         string          `json:"bill_number"`
	Remarks            string          `json:"remarks"`
	AmountDue          decimal.Decimal `json:"amount_due"`
	CommissionReleased decimal.Decimal `json:"commission_released"`
	Events             []event.Event   `json:"-"`
}

type AssignmentFilter struct {
	AgentID string
	Status  string
	Page    int
	Limit   int
}

// --- Interface ---

type AssignmentService interface {
	AssignPlot(ctx context.Context, req AssignPlotDTO) (AssignmentResponse, error)
	MarkPhasePaid(ctx context.Context, req MarkPhasePaidDTO) (PhasePaymentResponse, error)
	UpdatePhasePayment(ctx context.Context, req UpdatePhasePaymentDTO) (PhasePaymentResponse, error)
	NegotiatePrice(ctx context.Context, req NegotiatePriceDTO) (AssignmentResponse, error)
	SetAssignmentStatus(ctx context.Context, id string, req SetAssignmentStatusDTO) (AssignmentResponse, error)
	RemoveAssignment(ctx context.Context, id string) error
	GetAssignment(ctx context.Context, id string) (AssignmentResponse, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]AssignmentResponse, int64, error)
	PaymentSummary(ctx context.Context, id string) (PaymentSummary, error)
	PlotBreakdown(ctx context.Context, plotID, mode string) (PlotBreakdown, error)
}

type assignmentService struct {
	txm         repository.TransactionManager
	projects    repository.ProjectRepository
	leads       repository.LeadRepository
	assignments repository.AssignmentRepository
	payments    repository.PaymentRepository
	commissions repository.CommissionRepository
	engine      ReleaseEngine
	propagator  StatusPropagator
	orderIDs    *snowflake.Node
	events      event.Publisher
}

type AssignmentDeps struct {
	TxManager   repository.TransactionManager
	Projects    repository.ProjectRepository
	Leads       repository.LeadRepository
	Assignments repository.AssignmentRepository
	Payments    repository.PaymentRepository
	Commissions repository.CommissionRepository
	Engine      ReleaseEngine
	Propagator  StatusPropagator
	OrderIDs    *snowflake.Node
	Events      event.Publisher
}

func NewAssignmentService(d AssignmentDeps) AssignmentService {
	if d.Events == nil {
		d.Events = event.Discard
	}
	return &assignmentService{
		txm:         d.TxManager,
		projects:    d.Projects,
		leads:       d.Leads,
		assignments: d.Assignments,
		payments:    d.Payments,
		commissions: d.Commissions,
		engine:      d.Engine,
		propagator:  d.Propagator,
		orderIDs:    d.OrderIDs,
		events:      d.Events,
	}
}

// --- Implementation ---

func (s *assignmentService) AssignPlot(ctx context.Context, req AssignPlotDTO) (AssignmentResponse, error) {
	if err := validateDTO(req); err != nil {
		return AssignmentResponse{}, err
	}
	plotID := uuid.MustParse(req.PlotID)
	leadProjectID := uuid.MustParse(req.LeadProjectID)
	agentID := uuid.MustParse(req.AgentID)

	var created model.PlotAssignment
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		plot, err := s.projects.LockPlot(txCtx, plotID)
		if err != nil {
			return notFound("plot", err)
		}
		lp, err := s.leads.FindLeadProject(txCtx, leadProjectID)
		if err != nil {
			return notFound("lead project", err)
		}
		if lp.ProjectID != plot.ProjectID {
			return fmt.Errorf("plot %s is not part of the lead's project: %w", plot.PlotNo, ErrInvalidInput)
		}
		if !plot.IsAvailable {
			return fmt.Errorf("plot %s is not available: %w", plot.PlotNo, ErrInvalidStateTransition)
		}
		project, err := s.projects.FindProject(txCtx, plot.ProjectID)
		if err != nil {
			return notFound("project", err)
		}

		orderID := req.OrderID
		if orderID == "" {
			orderID = "ORD-" + s.orderIDs.Generate().Base36()
		}
		created = model.PlotAssignment{
			LeadProjectID: leadProjectID,
			PlotID:        plotID,
			AgentID:       agentID,
			OrderID:       orderID,
			Status:        model.AssignmentStatusBooked,
			PaymentMode:   model.PaymentModePhaseWise,
			Remarks:       req.Remarks,
			AssignedAt:    time.Now(),
		}
		if err := s.assignments.Create(txCtx, &created); err != nil {
			if repository.IsUniqueViolation(err) {
				return fmt.Errorf("plot %s was already assigned to this lead: %w", plot.PlotNo, ErrInvalidStateTransition)
			}
			return fmt.Errorf("failed to create assignment: %w", err)
		}
		if err := s.projects.SetPlotAvailable(txCtx, plotID, false); err != nil {
			return fmt.Errorf("failed to reserve plot: %w", err)
		}

		plot.Project = project
		created.Plot = plot
		if _, err := s.engine.CalculateTotal(txCtx, &created); err != nil {
			return err
		}
		return s.propagator.Propagate(txCtx, leadProjectID)
	})
	if err != nil {
		return AssignmentResponse{}, err
	}

	resp, err := s.GetAssignment(ctx, created.ID.String())
	if err != nil {
		return AssignmentResponse{}, err
	}
	entitlement := decimal.Zero
	if resp.Commission != nil {
		entitlement = resp.Commission.Total
	}
	resp.Events = []event.Event{{
		Kind:         event.AssignmentCreated,
		AgentID:      agentID,
		AssignmentID: created.ID,
		PlotNo:       resp.PlotNo,
		Amount:       entitlement,
		OccurredAt:   created.AssignedAt,
	}}
	s.events.Publish(resp.Events...)
	return resp, nil
}

func (s *assignmentService) MarkPhasePaid(ctx context.Context, req MarkPhasePaidDTO) (PhasePaymentResponse, error) {
	if err := validateDTO(req); err != nil {
		return PhasePaymentResponse{}, err
	}
	paid := true
	edit := paymentEdit{paid: &paid}
	if req.BillNumber != "" {
		edit.billNumber = &req.BillNumber
	}
	if req.Remarks != "" {
		edit.remarks = &req.Remarks
	}
	return s.applyPayment(ctx, uuid.MustParse(req.AssignmentID), uuid.MustParse(req.PhaseID), edit)
}

func (s *assignmentService) UpdatePhasePayment(ctx context.Context, req UpdatePhasePaymentDTO) (PhasePaymentResponse, error) {
	if err := validateDTO(req); err != nil {
		return PhasePaymentResponse{}, err
	}
	edit := paymentEdit{paid: req.Paid, billNumber: req.BillNumber, remarks: req.Remarks}
	return s.applyPayment(ctx, uuid.MustParse(req.AssignmentID), uuid.MustParse(req.PhaseID), edit)
}

type paymentEdit struct {
	paid       *bool
	billNumber *string
	remarks    *string
}

// applyPayment is the single write path for PhasePayment rows. The paid flag
// is read under the row lock, so only one caller ever sees the unpaid to paid
// flip and runs the release engine.
func (s *assignmentService) applyPayment(ctx context.Context, assignmentID, phaseID uuid.UUID, edit paymentEdit) (PhasePaymentResponse, error) {
	var (
		payment    *model.PhasePayment
		phase      *model.PaymentPhase
		assignment *model.PlotAssignment
		released   *ReleaseResult
	)
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		assignment, err = s.assignments.LockByID(txCtx, assignmentID)
		if err != nil {
			return notFound("assignment", err)
		}
		if assignment.Status == model.AssignmentStatusCancelled {
			return fmt.Errorf("assignment is cancelled: %w", ErrInvalidStateTransition)
		}
		phase, err = s.projects.FindPhase(txCtx, phaseID)
		if err != nil {
			return notFound("payment phase", err)
		}
		if phase.ProjectID != assignment.Plot.ProjectID {
			return fmt.Errorf("payment phase of another project: %w", ErrNotFound)
		}

		payment, err = s.payments.GetOrCreateLocked(txCtx, assignmentID, phaseID)
		if err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}

		wasPaid := payment.Paid
		if edit.billNumber != nil {
			payment.BillNumber = *edit.billNumber
		}
		if edit.remarks != nil {
			payment.Remarks = *edit.remarks
		}
		if edit.paid != nil {
			payment.Paid = *edit.paid
		}
		switch {
		case payment.Paid && !wasPaid:
			stamp := time.Now()
			payment.PaidAt = &stamp
		case !payment.Paid && wasPaid:
			// Released commission is not clawed back.
			payment.PaidAt = nil
		}
		if err := s.payments.Update(txCtx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		if payment.Paid && !wasPaid {
			result, err := s.engine.OnPhasePaid(txCtx, assignment, *phase, payment)
			if err != nil {
				return err
			}
			released = &result
		}
		return nil
	})
	if err != nil {
		return PhasePaymentResponse{}, err
	}

	payment.Phase = phase
	resp := toPhasePaymentResponse(*payment, assignment.BasePrice())
	// Every unpaid to paid flip is reported, including ones that released nothing.
	if released != nil {
		resp.Events = []event.Event{{
			Kind:         event.PhaseReleased,
			AgentID:      assignment.AgentID,
			AssignmentID: assignment.ID,
			PhaseID:      phase.ID,
			PhaseName:    phase.Name,
			PlotNo:       assignment.Plot.PlotNo,
			Amount:       released.Released,
			OccurredAt:   time.Now(),
		}}
		s.events.Publish(resp.Events...)
	}
	return resp, nil
}

func (s *assignmentService) NegotiatePrice(ctx context.Context, req NegotiatePriceDTO) (AssignmentResponse, error) {
	if err := validateDTO(req); err != nil {
		return AssignmentResponse{}, err
	}
	negotiated := price.Parse(req.Price)
	if negotiated.IsZero() {
		return AssignmentResponse{}, fmt.Errorf("%q: %w", req.Price, ErrInvalidPrice)
	}

	id := uuid.MustParse(req.AssignmentID)
	var adjusted event.Event
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.assignments.LockByID(txCtx, id)
		if err != nil {
			return notFound("assignment", err)
		}
		a.NegotiatedPrice = decimal.NewNullDecimal(negotiated)
		if req.PaymentMode != "" {
			a.PaymentMode = req.PaymentMode
		}
		if err := s.assignments.Update(txCtx, a); err != nil {
			return fmt.Errorf("failed to save negotiated price: %w", err)
		}
		// Already released amounts stay as they are.
		entry, err := s.engine.CalculateTotal(txCtx, a)
		if err != nil {
			return err
		}
		adjusted = event.Event{
			Kind:         event.CommissionAdjusted,
			AgentID:      a.AgentID,
			AssignmentID: a.ID,
			PlotNo:       a.Plot.PlotNo,
			Amount:       entry.TotalCommission,
			Reason:       "price renegotiated",
			OccurredAt:   time.Now(),
		}
		return nil
	})
	if err != nil {
		return AssignmentResponse{}, err
	}

	resp, err := s.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return AssignmentResponse{}, err
	}
	resp.Events = []event.Event{adjusted}
	s.events.Publish(resp.Events...)
	return resp, nil
}

func (s *assignmentService) SetAssignmentStatus(ctx context.Context, id string, req SetAssignmentStatusDTO) (AssignmentResponse, error) {
	if err := validateDTO(req); err != nil {
		return AssignmentResponse{}, err
	}
	aID, err := parseID("assignment id", id)
	if err != nil {
		return AssignmentResponse{}, err
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.assignments.LockByID(txCtx, aID)
		if err != nil {
			return notFound("assignment", err)
		}

		leavingCancelled := a.Status == model.AssignmentStatusCancelled && req.Status != model.AssignmentStatusCancelled
		enteringCancelled := a.Status != model.AssignmentStatusCancelled && req.Status == model.AssignmentStatusCancelled
		switch {
		case enteringCancelled:
			if err := s.projects.SetPlotAvailable(txCtx, a.PlotID, true); err != nil {
				return fmt.Errorf("failed to release plot: %w", err)
			}
		case leavingCancelled:
			plot, err := s.projects.LockPlot(txCtx, a.PlotID)
			if err != nil {
				return notFound("plot", err)
			}
			active, err := s.assignments.ActiveForPlot(txCtx, a.PlotID, a.ID)
			if err != nil {
				return fmt.Errorf("failed to check plot assignments: %w", err)
			}
			if !plot.IsAvailable || active > 0 {
				return fmt.Errorf("plot %s was taken by another assignment: %w", plot.PlotNo, ErrInvalidStateTransition)
			}
			if err := s.projects.SetPlotAvailable(txCtx, a.PlotID, false); err != nil {
				return fmt.Errorf("failed to reserve plot: %w", err)
			}
		}

		a.Status = req.Status
		if req.Remarks != nil {
			a.Remarks = *req.Remarks
		}
		if err := s.assignments.Update(txCtx, a); err != nil {
			return fmt.Errorf("failed to update assignment: %w", err)
		}
		return s.propagator.Propagate(txCtx, a.LeadProjectID)
	})
	if err != nil {
		return AssignmentResponse{}, err
	}
	return s.GetAssignment(ctx, id)
}

// RemoveAssignment deletes an assignment that never released any commission.
func (s *assignmentService) RemoveAssignment(ctx context.Context, id string) error {
	aID, err := parseID("assignment id", id)
	if err != nil {
		return err
	}

	var removed event.Event
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.assignments.LockByID(txCtx, aID)
		if err != nil {
			return notFound("assignment", err)
		}
		removed = event.Event{
			Kind:         event.CommissionAdjusted,
			AgentID:      a.AgentID,
			AssignmentID: a.ID,
			PlotNo:       a.Plot.PlotNo,
			Amount:       decimal.Zero,
			Reason:       "assignment removed",
			OccurredAt:   time.Now(),
		}

		entry, err := s.commissions.FindByAssignment(txCtx, aID)
		switch {
		case err == nil:
			locked, err := s.commissions.LockByID(txCtx, entry.ID)
			if err != nil {
				return notFound("commission", err)
			}
			if locked.WithdrawableAmount.IsPositive() {
				return fmt.Errorf("commission already released on this assignment: %w", ErrInvalidStateTransition)
			}
			if err := s.commissions.Delete(txCtx, locked.ID); err != nil {
				return fmt.Errorf("failed to delete commission: %w", err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to load commission: %w", err)
		}

		if err := s.assignments.Delete(txCtx, aID); err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}
		if a.Status != model.AssignmentStatusCancelled {
			if err := s.projects.SetPlotAvailable(txCtx, a.PlotID, true); err != nil {
				return fmt.Errorf("failed to release plot: %w", err)
			}
		}
		return s.propagator.Propagate(txCtx, a.LeadProjectID)
	})
	if err != nil {
		return err
	}
	s.events.Publish(removed)
	return nil
}

func (s *assignmentService) GetAssignment(ctx context.Context, id string) (AssignmentResponse, error) {
	aID, err := parseID("assignment id", id)
	if err != nil {
		return AssignmentResponse{}, err
	}
	a, err := s.assignments.FindByID(ctx, aID)
	if err != nil {
		return AssignmentResponse{}, notFound("assignment", err)
	}
	return toAssignmentResponse(*a), nil
}

func (s *assignmentService) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]AssignmentResponse, int64, error) {
	agentID, err := parseID("agent_id", filter.AgentID)
	if err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !model.IsValidAssignmentStatus(filter.Status) {
		return nil, 0, fmt.Errorf("unknown assignment status %q: %w", filter.Status, ErrInvalidInput)
	}
	params := pagination.New(filter.Page, filter.Limit)
	rows, total, err := s.assignments.ListByAgent(ctx, agentID, filter.Status, params.Offset, params.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}
	result := make([]AssignmentResponse, len(rows))
	for i, a := range rows {
		result[i] = toAssignmentResponse(a)
	}
	return result, total, nil
}

func (s *assignmentService) PlotBreakdown(ctx context.Context, plotID, mode string) (PlotBreakdown, error) {
	id, err := parseID("plot id", plotID)
	if err != nil {
		return PlotBreakdown{}, err
	}
	if mode == "" {
		mode = model.PaymentModePhaseWise
	}
	if !model.IsValidPaymentMode(mode) {
		return PlotBreakdown{}, fmt.Errorf("payment mode %q: %w", mode, ErrInvalidInput)
	}
	plot, err := s.projects.FindPlot(ctx, id)
	if err != nil {
		return PlotBreakdown{}, notFound("plot", err)
	}
	phases, err := s.projects.ListPhases(ctx, plot.ProjectID)
	if err != nil {
		return PlotBreakdown{}, fmt.Errorf("failed to load phases: %w", err)
	}
	for _, w := range ScheduleWarnings(phases) {
		log.Printf("project %s: %s", plot.ProjectID, w)
	}
	return Breakdown(*plot, phases, mode), nil
}

// --- Mappers ---

func toCommissionResponse(c model.AgentCommission) *CommissionResponse {
	return &CommissionResponse{
		ID:           c.ID.String(),
		Total:        c.TotalCommission,
		Withdrawable: c.WithdrawableAmount,
		Withdrawn:    c.WithdrawnAmount,
		Available:    c.Available(),
	}
}

func toAssignmentResponse(a model.PlotAssignment) AssignmentResponse {
	resp := AssignmentResponse{
		ID:            a.ID.String(),
		LeadProjectID: a.LeadProjectID.String(),
		PlotID:        a.PlotID.String(),
		AgentID:       a.AgentID.String(),
		OrderID:       a.OrderID,
		Status:        a.Status,
		PaymentMode:   a.PaymentMode,
		BasePrice:     a.BasePrice(),
		Remarks:       a.Remarks,
		AssignedAt:    a.AssignedAt.Format(time.RFC3339),
	}
	if a.NegotiatedPrice.Valid {
		negotiated := a.NegotiatedPrice.Decimal
		resp.NegotiatedPrice = &negotiated
	}
	if a.Plot != nil {
		resp.PlotNo = a.Plot.PlotNo
		resp.ListPrice = a.Plot.Price
		resp.ProjectID = a.Plot.ProjectID.String()
		if a.Plot.Project != nil {
			resp.ProjectName = a.Plot.Project.Name
		}
	}
	if a.LeadProject != nil && a.LeadProject.Lead != nil {
		resp.LeadName = a.LeadProject.Lead.FullName
	}
	if a.Commission != nil {
		resp.Commission = toCommissionResponse(*a.Commission)
	}
	return resp
}

func toPhasePaymentResponse(p model.PhasePayment, base decimal.Decimal) PhasePaymentResponse {
	resp := PhasePaymentResponse{
		ID:                 p.ID.String(),
		AssignmentID:       p.AssignmentID.String(),
		PhaseID:            p.PhaseID.String(),
		Paid:               p.Paid,
		BillNumber:         p.BillNumber,
		Remarks:            p.Remarks,
		CommissionReleased: p.CommissionReleased,
	}
	if p.Phase != nil {
		resp.PhaseName = p.Phase.Name
		resp.AmountDue = AmountFor(*p.Phase, base)
	}
	if p.PaidAt != nil {
		at := p.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &at
	}
	return resp
}
