package service

import (
	"errors"
	"testing"

	"neelgund-backend/internal/event"
	"neelgund-backend/internal/model"
)

func (f *fixture) statuses(t *testing.T) (leadProject, lead string) {
	t.Helper()
	var lp model.LeadProject
	if err := f.db.First(&lp, "id = ?", f.leadProject.ID).Error; err != nil {
		t.Fatalf("load lead project: %v", err)
	}
	var l model.Lead
	if err := f.db.First(&l, "id = ?", f.lead.ID).Error; err != nil {
		t.Fatalf("load lead: %v", err)
	}
	return lp.Status, l.Status
}

func (f *fixture) setStatus(t *testing.T, assignmentID, status string) {
	t.Helper()
	if _, err := f.assignments.SetAssignmentStatus(f.ctx, assignmentID, SetAssignmentStatusDTO{Status: status}); err != nil {
		t.Fatalf("SetAssignmentStatus(%s): %v", status, err)
	}
}

func TestStatusPropagation(t *testing.T) {
	f := newFixture(t)
	second := f.addPlot(t, "A-2", "40L")

	a1 := f.assign(t, f.plot)
	if lp, lead := f.statuses(t); lp != model.LeadProjectStatusInProgress || lead != model.LeadStatusInProgress {
		t.Errorf("after booking: lead project %s, lead %s", lp, lead)
	}

	a2 := f.assign(t, second)
	f.setStatus(t, a1.ID, model.AssignmentStatusClosed)
	if lp, _ := f.statuses(t); lp != model.LeadProjectStatusInProgress {
		t.Errorf("one closed, one booked: lead project %s, want in_progress", lp)
	}

	f.setStatus(t, a2.ID, model.AssignmentStatusCancelled)
	if lp, lead := f.statuses(t); lp != model.LeadProjectStatusClosed || lead != model.LeadStatusClosed {
		t.Errorf("closed and cancelled: lead project %s, lead %s, want closed/closed", lp, lead)
	}

	f.setStatus(t, a1.ID, model.AssignmentStatusCancelled)
	if lp, lead := f.statuses(t); lp != model.LeadProjectStatusCancelled || lead != model.LeadStatusCancelled {
		t.Errorf("all cancelled: lead project %s, lead %s", lp, lead)
	}
}

func TestSetAssignmentStatus_CancelFreesPlot(t *testing.T) {
	f := newFixture(t)
	a := f.assign(t, f.plot)

	f.setStatus(t, a.ID, model.AssignmentStatusCancelled)
	var plot model.Plot
	f.db.First(&plot, "id = ?", f.plot.ID)
	if !plot.IsAvailable {
		t.Error("plot not released after cancel")
	}

	f.setStatus(t, a.ID, model.AssignmentStatusBooked)
	f.db.First(&plot, "id = ?", f.plot.ID)
	if plot.IsAvailable {
		t.Error("plot not reserved again after reinstating")
	}
}

func TestSetAssignmentStatus_ReinstateRefusedWhilePlotHeldElsewhere(t *testing.T) {
	f := newFixture(t)
	a := f.assign(t, f.plot)
	f.setStatus(t, a.ID, model.AssignmentStatusCancelled)

	buyer := model.Lead{AgentID: f.agent.ID, FullName: "Meera Buyer", Status: model.LeadStatusNew}
	mustCreate(t, f.db, &buyer)
	lp := model.LeadProject{LeadID: buyer.ID, ProjectID: f.project.ID, Status: model.LeadProjectStatusInterested}
	mustCreate(t, f.db, &lp)
	if _, err := f.assignments.AssignPlot(f.ctx, AssignPlotDTO{
		PlotID:        f.plot.ID.String(),
		LeadProjectID: lp.ID.String(),
		AgentID:       f.agent.ID.String(),
	}); err != nil {
		t.Fatalf("AssignPlot for second buyer: %v", err)
	}
	// A stale availability flag must not let the first booking back in.
	f.db.Model(&model.Plot{}).Where("id = ?", f.plot.ID).Update("is_available", true)

	_, err := f.assignments.SetAssignmentStatus(f.ctx, a.ID, SetAssignmentStatusDTO{Status: model.AssignmentStatusBooked})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestSetAssignmentStatus_InvalidStatus(t *testing.T) {
	f := newFixture(t)
	a := f.assign(t, f.plot)

	_, err := f.assignments.SetAssignmentStatus(f.ctx, a.ID, SetAssignmentStatusDTO{Status: "sold"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRemoveAssignment(t *testing.T) {
	f := newFixture(t)
	a := f.assign(t, f.plot)

	if err := f.assignments.RemoveAssignment(f.ctx, a.ID); err != nil {
		t.Fatalf("RemoveAssignment: %v", err)
	}
	if _, err := f.assignments.GetAssignment(f.ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAssignment after remove: err = %v, want ErrNotFound", err)
	}
	var plot model.Plot
	f.db.First(&plot, "id = ?", f.plot.ID)
	if !plot.IsAvailable {
		t.Error("plot not released after remove")
	}
	if lp, lead := f.statuses(t); lp != model.LeadProjectStatusInterested || lead != model.LeadStatusInProgress {
		t.Errorf("after remove: lead project %s, lead %s", lp, lead)
	}

	removed := f.events.OfKind(event.CommissionAdjusted)
	if len(removed) != 1 || removed[0].AgentID != f.agent.ID || !removed[0].Amount.IsZero() {
		t.Errorf("CommissionAdjusted events = %+v, want one zero-amount event", removed)
	}
}

func TestRemoveAssignment_RefusedOnceCommissionReleased(t *testing.T) {
	f := newFixture(t)
	a := f.assign(t, f.plot)
	f.pay(t, a.ID, f.booking)

	if err := f.assignments.RemoveAssignment(f.ctx, a.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}
	if n := len(f.events.OfKind(event.CommissionAdjusted)); n != 0 {
		t.Errorf("CommissionAdjusted events = %d after a refused remove, want 0", n)
	}
}

func TestListAssignments(t *testing.T) {
	f := newFixture(t)
	f.assign(t, f.plot)
	f.assign(t, f.addPlot(t, "A-2", "40L"))

	items, total, err := f.assignments.ListAssignments(f.ctx, AssignmentFilter{AgentID: f.agent.ID.String(), Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 1 {
		t.Errorf("ListAssignments = %d rows, total %d, want 1 of 2", len(items), total)
	}

	_, _, err = f.assignments.ListAssignments(f.ctx, AssignmentFilter{AgentID: f.agent.ID.String(), Status: "sold"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown status filter: err = %v, want ErrInvalidInput", err)
	}
}

func TestLeadService(t *testing.T) {
	f := newFixture(t)
	other := model.Project{Code: "NG-02", Name: "Neel Heights", CommissionPercentage: amount("4")}
	mustCreate(t, f.db, &other)

	lp, err := f.leads.AddLeadProject(f.ctx, AddLeadProjectDTO{LeadID: f.lead.ID.String(), ProjectID: other.ID.String()})
	if err != nil {
		t.Fatalf("AddLeadProject: %v", err)
	}
	if lp.Status != model.LeadProjectStatusInterested {
		t.Errorf("new lead project status = %s", lp.Status)
	}

	if _, err := f.leads.AddLeadProject(f.ctx, AddLeadProjectDTO{LeadID: f.lead.ID.String(), ProjectID: other.ID.String()}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("duplicate AddLeadProject: err = %v, want ErrInvalidInput", err)
	}

	f.assign(t, f.plot)
	if err := f.leads.RemoveLeadProject(f.ctx, f.leadProject.ID.String()); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("RemoveLeadProject with assignments: err = %v, want ErrInvalidStateTransition", err)
	}
	if err := f.leads.RemoveLeadProject(f.ctx, lp.ID); err != nil {
		t.Errorf("RemoveLeadProject: %v", err)
	}
}

func TestPlotBreakdownService(t *testing.T) {
	f := newFixture(t)

	b, err := f.assignments.PlotBreakdown(f.ctx, f.plot.ID.String(), "")
	if err != nil {
		t.Fatal(err)
	}
	if b.PaymentMode != model.PaymentModePhaseWise || len(b.Phases) != 3 {
		t.Errorf("breakdown = %+v", b)
	}

	if _, err := f.assignments.PlotBreakdown(f.ctx, f.plot.ID.String(), "monthly"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
