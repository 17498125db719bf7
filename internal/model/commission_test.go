package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAgentCommission_Release(t *testing.T) {
	c := AgentCommission{TotalCommission: dec("400000")}

	if got := c.Release(dec("80000")); !got.Equal(dec("80000")) {
		t.Fatalf("Release(80000) = %s, want 80000", got)
	}
	if got := c.Release(dec("400000")); !got.Equal(dec("320000")) {
		t.Fatalf("Release clamps at total: got %s, want 320000", got)
	}
	if got := c.Release(dec("1")); !got.IsZero() {
		t.Errorf("Release on a fully released entry = %s, want 0", got)
	}
	if !c.WithdrawableAmount.Equal(c.TotalCommission) {
		t.Errorf("WithdrawableAmount = %s, want %s", c.WithdrawableAmount, c.TotalCommission)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestAgentCommission_ReleaseIgnoresNonPositive(t *testing.T) {
	c := AgentCommission{TotalCommission: dec("100")}
	for _, amount := range []string{"0", "-5"} {
		if got := c.Release(dec(amount)); !got.IsZero() {
			t.Errorf("Release(%s) = %s, want 0", amount, got)
		}
	}
	if !c.WithdrawableAmount.IsZero() {
		t.Errorf("WithdrawableAmount = %s, want 0", c.WithdrawableAmount)
	}
}

func TestAgentCommission_SetEntitlementFloorsAtReleased(t *testing.T) {
	c := AgentCommission{TotalCommission: dec("500000"), WithdrawableAmount: dec("300000")}

	if floored := c.SetEntitlement(dec("200000")); !floored {
		t.Error("SetEntitlement below released: floored = false, want true")
	}
	if !c.TotalCommission.Equal(dec("300000")) {
		t.Errorf("TotalCommission = %s, want 300000", c.TotalCommission)
	}

	if floored := c.SetEntitlement(dec("600000")); floored {
		t.Error("SetEntitlement above released: floored = true, want false")
	}
	if !c.TotalCommission.Equal(dec("600000")) {
		t.Errorf("TotalCommission = %s, want 600000", c.TotalCommission)
	}

	c.SetEntitlement(dec("-1"))
	if !c.TotalCommission.Equal(dec("300000")) {
		t.Errorf("negative entitlement: TotalCommission = %s, want 300000", c.TotalCommission)
	}
}

func TestAgentCommission_RecordWithdrawal(t *testing.T) {
	c := AgentCommission{
		TotalCommission:    dec("400000"),
		WithdrawableAmount: dec("80000"),
	}

	if !c.RecordWithdrawal(dec("50000")) {
		t.Fatal("RecordWithdrawal(50000) = false, want true")
	}
	if !c.Available().Equal(dec("30000")) {
		t.Errorf("Available() = %s, want 30000", c.Available())
	}
	if c.RecordWithdrawal(dec("30000.01")) {
		t.Error("RecordWithdrawal above available = true, want false")
	}
	if c.RecordWithdrawal(dec("-1")) {
		t.Error("RecordWithdrawal(-1) = true, want false")
	}
	if !c.RecordWithdrawal(dec("30000")) {
		t.Error("RecordWithdrawal of exactly available = false, want true")
	}
	if !c.Available().IsZero() {
		t.Errorf("Available() = %s, want 0", c.Available())
	}
	// Withdrawable is cumulative and stays put.
	if !c.WithdrawableAmount.Equal(dec("80000")) {
		t.Errorf("WithdrawableAmount = %s, want 80000", c.WithdrawableAmount)
	}
}

func TestAgentCommission_Validate(t *testing.T) {
	testCases := []struct {
		name                           string
		total, withdrawable, withdrawn string
		wantErr                        bool
	}{
		{"empty", "0", "0", "0", false},
		{"balanced", "100", "60", "60", false},
		{"withdrawn above released", "100", "50", "60", true},
		{"released above total", "100", "120", "0", true},
		{"negative withdrawn", "100", "50", "-1", true},
	}

	for _, tc := range testCases {
		c := AgentCommission{
			TotalCommission:    dec(tc.total),
			WithdrawableAmount: dec(tc.withdrawable),
			WithdrawnAmount:    dec(tc.withdrawn),
		}
		if err := c.Validate(); (err != nil) != tc.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestPlotAssignment_BasePrice(t *testing.T) {
	a := PlotAssignment{Plot: &Plot{Price: "80L"}}
	if got := a.BasePrice(); !got.Equal(dec("8000000")) {
		t.Errorf("BasePrice() = %s, want 8000000", got)
	}

	a.NegotiatedPrice = decimal.NewNullDecimal(dec("10000000"))
	if got := a.BasePrice(); !got.Equal(dec("10000000")) {
		t.Errorf("BasePrice() with negotiated = %s, want 10000000", got)
	}

	if got := (&PlotAssignment{}).BasePrice(); !got.IsZero() {
		t.Errorf("BasePrice() without plot = %s, want 0", got)
	}
}
