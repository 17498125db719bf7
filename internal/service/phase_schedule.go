package service

import (
	"fmt"
	"sort"
	"time"

	"neelgund-backend/internal/model"
	"neelgund-backend/pkg/price"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PhasesFor returns the phases tagged with mode, ordered by OrderIndex.
func PhasesFor(phases []model.PaymentPhase, mode string) []model.PaymentPhase {
	out := make([]model.PaymentPhase, 0, len(phases))
	for _, p := range phases {
		if p.Mode == mode {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

// Percent returns base * pct / 100 rounded half away from zero to paise.
// Ledger sums rely on this exact rounding.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred).Round(2)
}

// AmountFor is the installment due for phase on a plot priced at base.
func AmountFor(phase model.PaymentPhase, base decimal.Decimal) decimal.Decimal {
	return Percent(base, phase.Percentage)
}

// DueDate resolves a phase's due window against the assignment date. The
// result is the end of that day.
func DueDate(phase model.PaymentPhase, assignedAt time.Time) time.Time {
	days := 0
	switch phase.Due {
	case model.Due30Days:
		days = 30
	case model.Due60Days:
		days = 60
	case model.Due90Days:
		days = 90
	case model.Due120Days:
		days = 120
	case model.DueCustom:
		days = phase.DueDays
	}
	return now.With(assignedAt.AddDate(0, 0, days)).EndOfDay()
}

// ScheduleWarnings lists the modes whose phase weights do not add up to 100.
// Schedules are allowed to be off; this only feeds the logs.
func ScheduleWarnings(phases []model.PaymentPhase) []string {
	sums := map[string]decimal.Decimal{}
	for _, p := range phases {
		sums[p.Mode] = sums[p.Mode].Add(p.Percentage)
	}
	var warnings []string
	for _, mode := range []string{model.PaymentModePhaseWise, model.PaymentModeFullPayment} {
		sum, ok := sums[mode]
		if ok && !sum.Equal(hundred) {
			warnings = append(warnings, fmt.Sprintf("%s phases add up to %s%%", mode, sum.String()))
		}
	}
	return warnings
}

type PhaseBreakdownLine struct {
	PhaseID    string          `json:"phase_id"`
	Name       string          `json:"name"`
	Due        string          `json:"due"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
	Display    string          `json:"display"`
}

type PlotBreakdown struct {
	PlotID       string               `json:"plot_id"`
	PlotNo       string               `json:"plot_no"`
	PaymentMode  string               `json:"payment_mode"`
	TotalPrice   decimal.Decimal      `json:"total_price"`
	TotalDisplay string               `json:"total_display"`
	Phases       []PhaseBreakdownLine `json:"phases"`
}

// Breakdown splits a plot's list price into the installments of one payment mode.
func Breakdown(plot model.Plot, phases []model.PaymentPhase, mode string) PlotBreakdown {
	base := price.Parse(plot.Price)
	out := PlotBreakdown{
		PlotID:       plot.ID.String(),
		PlotNo:       plot.PlotNo,
		PaymentMode:  mode,
		TotalPrice:   base,
		TotalDisplay: price.Lakhs(base),
		Phases:       []PhaseBreakdownLine{},
	}
	for _, ph := range PhasesFor(phases, mode) {
		amount := AmountFor(ph, base)
		out.Phases = append(out.Phases, PhaseBreakdownLine{
			PhaseID:    ph.ID.String(),
			Name:       ph.Name,
			Due:        ph.Due,
			Percentage: ph.Percentage,
			Amount:     amount,
			Display:    price.Lakhs(amount),
		})
	}
	return out
}
