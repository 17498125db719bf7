package service

import (
	"context"
	"testing"

	"neelgund-backend/internal/database"
	"neelgund-backend/internal/event"
	"neelgund-backend/internal/model"
	"neelgund-backend/internal/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection: a transaction holds it, so every query inside must
	// go through the transaction's context.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fixture is one project (5% commission) with a phase_wise schedule of
// booking 20 / foundation 40 / possession 40, a full_payment phase of 100,
// one plot priced "80L", and a lead following the project.
type fixture struct {
	ctx context.Context
	db  *gorm.DB

	assignments AssignmentService
	withdrawals WithdrawalService
	leads       LeadService
	ledger      CommissionLedger
	events      *event.Recorder

	project     model.Project
	booking     model.PaymentPhase
	foundation  model.PaymentPhase
	possession  model.PaymentPhase
	fullPayment model.PaymentPhase
	plot        model.Plot
	lead        model.Lead
	leadProject model.LeadProject
	agent       model.User
	admin       model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{ctx: context.Background(), db: db, events: &event.Recorder{}}

	txm := repository.NewTransactionManager(db)
	projects := repository.NewProjectRepository(db)
	leads := repository.NewLeadRepository(db)
	payments := repository.NewPaymentRepository(db)
	commissions := repository.NewCommissionRepository(db)

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	f.ledger = NewCommissionLedger(txm, commissions)
	engine := NewReleaseEngine(txm, f.ledger, projects, payments)
	propagator := NewStatusPropagator(leads)

	f.assignments = NewAssignmentService(AssignmentDeps{
		TxManager:   txm,
		Projects:    projects,
		Leads:       leads,
		Assignments: repository.NewAssignmentRepository(db),
		Payments:    payments,
		Commissions: commissions,
		Engine:      engine,
		Propagator:  propagator,
		OrderIDs:    node,
		Events:      f.events,
	})
	f.withdrawals = NewWithdrawalService(txm, f.ledger, repository.NewWithdrawalRepository(db), commissions, f.events)
	f.leads = NewLeadService(txm, leads, projects, propagator)

	f.agent = model.User{FullName: "Asha Agent", Email: "asha@example.com", Role: model.RoleAgent, Approved: true}
	f.admin = model.User{FullName: "Admin", Email: "admin@example.com", Role: model.RoleAdmin, Approved: true}
	mustCreate(t, db, &f.agent)
	mustCreate(t, db, &f.admin)

	f.project = model.Project{Code: "NG-01", Name: "Neel Greens", CommissionPercentage: decimal.NewFromInt(5)}
	mustCreate(t, db, &f.project)

	f.booking = f.addPhase(t, "booking", model.PaymentModePhaseWise, 20, 1)
	f.foundation = f.addPhase(t, "foundation", model.PaymentModePhaseWise, 40, 2)
	f.possession = f.addPhase(t, "possession", model.PaymentModePhaseWise, 40, 3)
	f.fullPayment = f.addPhase(t, "full settlement", model.PaymentModeFullPayment, 100, 4)

	f.plot = f.addPlot(t, "A-1", "80L")

	lead, err := f.leads.CreateLead(f.ctx, CreateLeadDTO{AgentID: f.agent.ID.String(), FullName: "Ravi Buyer", ContactNumber: "9800000001"})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if err := db.First(&f.lead, "id = ?", lead.ID).Error; err != nil {
		t.Fatalf("load lead: %v", err)
	}
	f.leadProject = model.LeadProject{LeadID: f.lead.ID, ProjectID: f.project.ID, Status: model.LeadProjectStatusInterested}
	mustCreate(t, db, &f.leadProject)

	return f
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

func (f *fixture) addPhase(t *testing.T, name, mode string, pct int64, order int) model.PaymentPhase {
	t.Helper()
	p := model.PaymentPhase{
		ProjectID:  f.project.ID,
		Name:       name,
		Percentage: decimal.NewFromInt(pct),
		Mode:       mode,
		Due:        model.DueImmediate,
		OrderIndex: order,
	}
	mustCreate(t, f.db, &p)
	return p
}

func (f *fixture) addPlot(t *testing.T, no, price string) model.Plot {
	t.Helper()
	p := model.Plot{ProjectID: f.project.ID, PlotNo: no, Price: price, IsAvailable: true}
	mustCreate(t, f.db, &p)
	return p
}

func (f *fixture) assign(t *testing.T, plot model.Plot) AssignmentResponse {
	t.Helper()
	resp, err := f.assignments.AssignPlot(f.ctx, AssignPlotDTO{
		PlotID:        plot.ID.String(),
		LeadProjectID: f.leadProject.ID.String(),
		AgentID:       f.agent.ID.String(),
	})
	if err != nil {
		t.Fatalf("AssignPlot: %v", err)
	}
	return resp
}

func (f *fixture) pay(t *testing.T, assignmentID string, phase model.PaymentPhase) PhasePaymentResponse {
	t.Helper()
	resp, err := f.assignments.MarkPhasePaid(f.ctx, MarkPhasePaidDTO{
		AssignmentID: assignmentID,
		PhaseID:      phase.ID.String(),
	})
	if err != nil {
		t.Fatalf("MarkPhasePaid(%s): %v", phase.Name, err)
	}
	return resp
}

func (f *fixture) setPaid(t *testing.T, assignmentID string, phase model.PaymentPhase, paid bool) {
	t.Helper()
	_, err := f.assignments.UpdatePhasePayment(f.ctx, UpdatePhasePaymentDTO{
		AssignmentID: assignmentID,
		PhaseID:      phase.ID.String(),
		Paid:         &paid,
	})
	if err != nil {
		t.Fatalf("UpdatePhasePayment(%s, paid=%v): %v", phase.Name, paid, err)
	}
}

func (f *fixture) commission(t *testing.T, assignmentID string) model.AgentCommission {
	t.Helper()
	var c model.AgentCommission
	if err := f.db.First(&c, "assignment_id = ?", assignmentID).Error; err != nil {
		t.Fatalf("load commission: %v", err)
	}
	return c
}

func (f *fixture) releaseAll(t *testing.T) AssignmentResponse {
	t.Helper()
	a := f.assign(t, f.plot)
	f.pay(t, a.ID, f.booking)
	f.pay(t, a.ID, f.foundation)
	f.pay(t, a.ID, f.possession)
	return a
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(amount(want)) {
		t.Errorf("%s = %s, want %s", what, got.StringFixed(2), want)
	}
}
