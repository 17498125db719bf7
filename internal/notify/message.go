package notify

import (
	"fmt"

	"neelgund-backend/internal/event"
	"neelgund-backend/pkg/price"

	"github.com/google/uuid"
)

// Message is an event rendered for people.
type Message struct {
	Event event.Event
	Title string
	Body  string
	Data  map[string]string // FCM only carries string values
}

func Render(e event.Event) Message {
	m := Message{Event: e, Data: map[string]string{
		"kind":   string(e.Kind),
		"amount": e.Amount.StringFixed(2),
	}}
	if e.AssignmentID != uuid.Nil {
		m.Data["assignment_id"] = e.AssignmentID.String()
	}
	if e.WithdrawalID != uuid.Nil {
		m.Data["withdrawal_id"] = e.WithdrawalID.String()
	}

	switch e.Kind {
	case event.AssignmentCreated:
		m.Title = "Plot booked"
		m.Body = fmt.Sprintf("Plot %s is booked in your name. Commission entitlement: ₹%s.", e.PlotNo, price.Format(e.Amount))
	case event.PhaseReleased:
		m.Title = "Payment phase updated"
		m.Data["phase_id"] = e.PhaseID.String()
		if e.Amount.IsPositive() {
			m.Body = fmt.Sprintf("%s paid for plot %s. ₹%s commission is now withdrawable.", e.PhaseName, e.PlotNo, price.Format(e.Amount))
		} else {
			m.Body = fmt.Sprintf("%s paid for plot %s.", e.PhaseName, e.PlotNo)
		}
	case event.CommissionAdjusted:
		m.Title = "Commission updated"
		if e.Amount.IsPositive() {
			m.Body = fmt.Sprintf("Commission entitlement for plot %s is now ₹%s (%s).", e.PlotNo, price.Format(e.Amount), e.Reason)
		} else {
			m.Body = fmt.Sprintf("Plot %s no longer earns commission (%s).", e.PlotNo, e.Reason)
		}
	case event.WithdrawalRequested:
		m.Title = "Withdrawal requested"
		m.Body = fmt.Sprintf("Withdrawal of ₹%s is waiting for approval.", e.Amount.StringFixed(2))
	case event.WithdrawalApproved:
		m.Title = "Withdrawal approved"
		m.Body = fmt.Sprintf("Your withdrawal of ₹%s has been approved.", e.Amount.StringFixed(2))
	case event.WithdrawalRejected:
		m.Title = "Withdrawal rejected"
		m.Body = fmt.Sprintf("Your withdrawal of ₹%s was rejected.", e.Amount.StringFixed(2))
		if e.Reason != "" {
			m.Body += " Reason: " + e.Reason
		}
	default:
		m.Title = "Update"
		m.Body = string(e.Kind)
	}
	return m
}
