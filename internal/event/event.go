// Package event holds the domain events that ledger operations emit once their
// transaction has committed.
package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	AssignmentCreated   Kind = "assignment_created"
	PhaseReleased       Kind = "phase_released" // every unpaid to paid flip; Amount may be zero
	CommissionAdjusted  Kind = "commission_adjusted"
	WithdrawalRequested Kind = "withdrawal_requested"
	WithdrawalApproved  Kind = "withdrawal_approved"
	WithdrawalRejected  Kind = "withdrawal_rejected"
)

// Event is a fact about the ledger addressed to one agent. Fields that do not
// apply to a kind are left zero.
type Event struct {
	Kind         Kind            `json:"kind"`
	AgentID      uuid.UUID       `json:"agent_id"`
	AssignmentID uuid.UUID       `json:"assignment_id,omitempty"`
	PhaseID      uuid.UUID       `json:"phase_id,omitempty"`
	PhaseName    string          `json:"phase_name,omitempty"`
	PlotNo       string          `json:"plot_no,omitempty"`
	WithdrawalID uuid.UUID       `json:"withdrawal_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// Publisher receives events after commit. Implementations must not block the caller.
type Publisher interface {
	Publish(events ...Event)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(...Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(events ...Event) {
	r.Events = append(r.Events, events...)
}

// OfKind filters the recorded events.
func (r *Recorder) OfKind(kind Kind) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
