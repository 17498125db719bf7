package service

import (
	"errors"
	"testing"

	"neelgund-backend/internal/event"
	"neelgund-backend/internal/model"
)

func (f *fixture) request(t *testing.T, amt string) WithdrawalResponse {
	t.Helper()
	resp, err := f.withdrawals.Request(f.ctx, RequestWithdrawalDTO{AgentID: f.agent.ID.String(), Amount: amount(amt)})
	if err != nil {
		t.Fatalf("Request(%s): %v", amt, err)
	}
	return resp
}

func TestWithdrawalRequest_OnePendingPerAgent(t *testing.T) {
	f := newFixture(t)
	f.releaseAll(t)

	first := f.request(t, "150000")
	if first.Status != model.WithdrawalPending || first.Approved {
		t.Errorf("status = %s approved=%v, want PENDING", first.Status, first.Approved)
	}

	_, err := f.withdrawals.Request(f.ctx, RequestWithdrawalDTO{AgentID: f.agent.ID.String(), Amount: amount("1000")})
	if !errors.Is(err, ErrDuplicatePendingRequest) {
		t.Errorf("second request: err = %v, want ErrDuplicatePendingRequest", err)
	}

	requested := f.events.OfKind(event.WithdrawalRequested)
	if len(requested) != 1 {
		t.Fatalf("WithdrawalRequested events = %d, want 1", len(requested))
	}
	assertAmount(t, "event amount", requested[0].Amount, "150000")
}

func TestWithdrawalRequest_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	a := f.assign(t, f.plot)
	f.pay(t, a.ID, f.booking)

	_, err := f.withdrawals.Request(f.ctx, RequestWithdrawalDTO{AgentID: f.agent.ID.String(), Amount: amount("80000.01")})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}

	f.request(t, "80000")
}

func TestWithdrawalRequest_NonPositiveAmount(t *testing.T) {
	f := newFixture(t)

	for _, amt := range []string{"0", "-10"} {
		_, err := f.withdrawals.Request(f.ctx, RequestWithdrawalDTO{AgentID: f.agent.ID.String(), Amount: amount(amt)})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Request(%s): err = %v, want ErrInvalidInput", amt, err)
		}
	}
}

func TestWithdrawalRequest_SubPaisaAmountRejected(t *testing.T) {
	f := newFixture(t)
	f.releaseAll(t)

	_, err := f.withdrawals.Request(f.ctx, RequestWithdrawalDTO{AgentID: f.agent.ID.String(), Amount: amount("0.004")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Request(0.004): err = %v, want ErrInvalidInput", err)
	}
	var stored int64
	f.db.Model(&model.WithdrawalRequest{}).Where("agent_id = ?", f.agent.ID).Count(&stored)
	if stored != 0 {
		t.Errorf("stored %d withdrawal requests, want 0", stored)
	}

	// Nothing was left pending, so a real request goes through.
	resp := f.request(t, "1000")
	assertAmount(t, "requested", resp.Amount, "1000")
}

func TestWithdrawalApprove_AllocatesOldestFirst(t *testing.T) {
	f := newFixture(t)
	second := f.addPlot(t, "A-2", "40L")

	a1 := f.assign(t, f.plot)
	a2 := f.assign(t, second)
	f.pay(t, a1.ID, f.booking) // 80,000
	f.pay(t, a2.ID, f.booking) // 40,000

	w := f.request(t, "100000")
	approved, err := f.withdrawals.Approve(f.ctx, w.ID, f.admin.ID.String())
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if !approved.Approved || approved.ApprovedBy == nil || *approved.ApprovedBy != f.admin.ID.String() {
		t.Errorf("approved response = %+v", approved)
	}

	c1 := f.commission(t, a1.ID)
	c2 := f.commission(t, a2.ID)
	assertAmount(t, "first entry withdrawn", c1.WithdrawnAmount, "80000")
	assertAmount(t, "second entry withdrawn", c2.WithdrawnAmount, "20000")
	assertAmount(t, "second entry available", c2.Available(), "20000")
	assertAmount(t, "first entry withdrawable", c1.WithdrawableAmount, "80000")

	if len(approved.Allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(approved.Allocations))
	}
	byEntry := map[string]string{}
	for _, alloc := range approved.Allocations {
		byEntry[alloc.CommissionID] = alloc.Amount.StringFixed(2)
	}
	if byEntry[c1.ID.String()] != "80000.00" || byEntry[c2.ID.String()] != "20000.00" {
		t.Errorf("allocations = %v", byEntry)
	}

	available, err := f.ledger.SumAvailable(f.ctx, f.agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	assertAmount(t, "available after approval", available, "20000")

	if n := len(f.events.OfKind(event.WithdrawalApproved)); n != 1 {
		t.Errorf("WithdrawalApproved events = %d, want 1", n)
	}
}

func TestWithdrawalApprove_AlreadyApprovedIsNoop(t *testing.T) {
	f := newFixture(t)
	a := f.releaseAll(t)

	w := f.request(t, "100000")
	if _, err := f.withdrawals.Approve(f.ctx, w.ID, f.admin.ID.String()); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	again, err := f.withdrawals.Approve(f.ctx, w.ID, f.admin.ID.String())
	if !errors.Is(err, ErrAlreadyApproved) {
		t.Errorf("second Approve: err = %v, want ErrAlreadyApproved", err)
	}
	if again.Status != model.WithdrawalApproved {
		t.Errorf("second Approve status = %s, want APPROVED", again.Status)
	}
	assertAmount(t, "withdrawn", f.commission(t, a.ID).WithdrawnAmount, "100000")
	if n := len(f.events.OfKind(event.WithdrawalApproved)); n != 1 {
		t.Errorf("WithdrawalApproved events = %d, want 1", n)
	}

	// The approved request no longer blocks a new one.
	f.request(t, "50000")
}

func TestWithdrawalApprove_BalanceShrankSinceRequest(t *testing.T) {
	f := newFixture(t)
	a := f.assign(t, f.plot)
	f.pay(t, a.ID, f.booking)

	w := f.request(t, "80000")
	// An admin adjustment outside the request flow drains the entry.
	c := f.commission(t, a.ID)
	if err := f.ledger.RecordWithdrawal(f.ctx, c.ID, amount("30000")); err != nil {
		t.Fatalf("RecordWithdrawal: %v", err)
	}

	_, err := f.withdrawals.Approve(f.ctx, w.ID, f.admin.ID.String())
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
	got, _ := f.withdrawals.Get(f.ctx, w.ID)
	if got.Status != model.WithdrawalPending {
		t.Errorf("status after failed approval = %s, want PENDING", got.Status)
	}
}

func TestWithdrawalReject(t *testing.T) {
	f := newFixture(t)
	f.releaseAll(t)

	w := f.request(t, "100000")
	rejected, err := f.withdrawals.Reject(f.ctx, w.ID, f.admin.ID.String(), "bank details missing")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != model.WithdrawalRejected || rejected.RejectionReason != "bank details missing" {
		t.Errorf("rejected response = %+v", rejected)
	}

	if _, err := f.withdrawals.Approve(f.ctx, w.ID, f.admin.ID.String()); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("Approve after reject: err = %v, want ErrInvalidStateTransition", err)
	}
	if _, err := f.withdrawals.Reject(f.ctx, w.ID, f.admin.ID.String(), ""); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("second Reject: err = %v, want ErrInvalidStateTransition", err)
	}

	available, _ := f.ledger.SumAvailable(f.ctx, f.agent.ID)
	assertAmount(t, "available after reject", available, "400000")

	f.request(t, "100000")
}

func TestWithdrawalApprove_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.withdrawals.Approve(f.ctx, f.plot.ID.String(), f.admin.ID.String())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWithdrawalList(t *testing.T) {
	f := newFixture(t)
	f.releaseAll(t)

	w := f.request(t, "1000")
	if _, err := f.withdrawals.Approve(f.ctx, w.ID, f.admin.ID.String()); err != nil {
		t.Fatal(err)
	}
	f.request(t, "2000")

	all, total, err := f.withdrawals.List(f.ctx, WithdrawalFilter{AgentID: f.agent.ID.String()})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("List = %d rows, total %d, want 2", len(all), total)
	}

	pending, total, err := f.withdrawals.List(f.ctx, WithdrawalFilter{Status: model.WithdrawalPending})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || pending[0].AgentName != f.agent.FullName {
		t.Errorf("pending = %+v, total %d", pending, total)
	}
}
