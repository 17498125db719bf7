package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"neelgund-backend/internal/event"
	"neelgund-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type recordingSink struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return s.err
}

func (s *recordingSink) kinds() []event.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Kind, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Event.Kind
	}
	return out
}

type panickingSink struct{}

func (panickingSink) Name() string { return "panicking" }

func (panickingSink) Deliver(context.Context, Message) error { panic("boom") }

func TestDispatcher_DeliversInOrderToEverySink(t *testing.T) {
	failing := &recordingSink{err: errors.New("smtp down")}
	ok := &recordingSink{}
	d := NewDispatcher(8, failing, panickingSink{}, ok)
	d.Start()

	d.Publish(
		event.Event{Kind: event.AssignmentCreated, AgentID: uuid.New()},
		event.Event{Kind: event.PhaseReleased, AgentID: uuid.New()},
	)
	d.Close()

	want := []event.Kind{event.AssignmentCreated, event.PhaseReleased}
	for _, sink := range []*recordingSink{failing, ok} {
		got := sink.kinds()
		if len(got) != len(want) {
			t.Fatalf("delivered %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("delivery %d = %s, want %s", i, got[i], want[i])
			}
		}
	}
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(1, sink)

	// Not started yet, so only one event fits.
	for i := 0; i < 3; i++ {
		d.Publish(event.Event{Kind: event.WithdrawalApproved})
	}
	d.Start()
	d.Close()
	d.Close()

	if n := len(sink.kinds()); n != 1 {
		t.Errorf("delivered %d events, want 1", n)
	}
}

func TestDispatcher_PublishAfterCloseDrops(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(4, sink)
	d.Start()
	d.Publish(event.Event{Kind: event.AssignmentCreated})
	d.Close()

	d.Publish(event.Event{Kind: event.WithdrawalApproved})

	if got := sink.kinds(); len(got) != 1 || got[0] != event.AssignmentCreated {
		t.Errorf("delivered %v, want only the event published before Close", got)
	}
}

func TestRender(t *testing.T) {
	assignmentID := uuid.New()
	m := Render(event.Event{
		Kind:         event.PhaseReleased,
		AgentID:      uuid.New(),
		AssignmentID: assignmentID,
		PhaseID:      uuid.New(),
		PhaseName:    "booking",
		PlotNo:       "A-1",
		Amount:       decimal.NewFromInt(80000),
	})

	if m.Title != "Payment phase updated" {
		t.Errorf("Title = %q", m.Title)
	}
	if !strings.Contains(m.Body, "₹80K") || !strings.Contains(m.Body, "plot A-1") {
		t.Errorf("Body = %q", m.Body)
	}
	if m.Data["assignment_id"] != assignmentID.String() || m.Data["amount"] != "80000.00" {
		t.Errorf("Data = %v", m.Data)
	}
	if _, ok := m.Data["withdrawal_id"]; ok {
		t.Error("Data carries an empty withdrawal_id")
	}

	unreleased := Render(event.Event{Kind: event.PhaseReleased, PhaseName: "foundation", PlotNo: "A-1"})
	if unreleased.Body != "foundation paid for plot A-1." || unreleased.Data["amount"] != "0.00" {
		t.Errorf("zero release = %q %v", unreleased.Body, unreleased.Data)
	}

	adjusted := Render(event.Event{Kind: event.CommissionAdjusted, PlotNo: "A-1", Amount: decimal.NewFromInt(500000), Reason: "price renegotiated"})
	if adjusted.Title != "Commission updated" || !strings.Contains(adjusted.Body, "₹5L") {
		t.Errorf("adjusted = %q / %q", adjusted.Title, adjusted.Body)
	}
	removed := Render(event.Event{Kind: event.CommissionAdjusted, PlotNo: "A-1", Reason: "assignment removed"})
	if !strings.Contains(removed.Body, "no longer earns commission") {
		t.Errorf("removed Body = %q", removed.Body)
	}

	rejected := Render(event.Event{Kind: event.WithdrawalRejected, Amount: decimal.NewFromInt(5000), Reason: "duplicate"})
	if !strings.HasSuffix(rejected.Body, "Reason: duplicate") {
		t.Errorf("rejected Body = %q", rejected.Body)
	}
}

type fakeInbox struct{ created []*model.Notification }

func (f *fakeInbox) Create(_ context.Context, n *model.Notification) error {
	f.created = append(f.created, n)
	return nil
}

func TestInboxSink_SkipsAdminEvents(t *testing.T) {
	store := &fakeInbox{}
	sink := NewInboxSink(store)

	agentID := uuid.New()
	for _, kind := range []event.Kind{event.WithdrawalRequested, event.WithdrawalApproved} {
		m := Render(event.Event{Kind: kind, AgentID: agentID, WithdrawalID: uuid.New(), Amount: decimal.NewFromInt(100)})
		if err := sink.Deliver(context.Background(), m); err != nil {
			t.Fatal(err)
		}
	}

	if len(store.created) != 1 {
		t.Fatalf("stored %d notifications, want 1", len(store.created))
	}
	n := store.created[0]
	if n.AgentID != agentID || n.Kind != string(event.WithdrawalApproved) || n.IsRead {
		t.Errorf("stored notification = %+v", n)
	}
	if n.Data["amount"] != "100.00" {
		t.Errorf("notification data = %v", n.Data)
	}
}

type fakeInvalidator struct{ agents []string }

func (f *fakeInvalidator) Invalidate(_ context.Context, agentID string) error {
	f.agents = append(f.agents, agentID)
	return nil
}

func TestCacheSink_InvalidatesOnLedgerChanges(t *testing.T) {
	inv := &fakeInvalidator{}
	sink := NewCacheSink(inv)

	agentID := uuid.New()
	for _, kind := range []event.Kind{event.AssignmentCreated, event.WithdrawalRequested, event.PhaseReleased, event.CommissionAdjusted, event.WithdrawalRejected} {
		_ = sink.Deliver(context.Background(), Message{Event: event.Event{Kind: kind, AgentID: agentID}})
	}

	if len(inv.agents) != 3 {
		t.Errorf("invalidated %d times, want 3", len(inv.agents))
	}
}

type fakeHub struct {
	userID  string
	payload []byte
}

func (f *fakeHub) SendToUser(userID string, payload []byte) {
	f.userID, f.payload = userID, payload
}

func TestWebsocketSink(t *testing.T) {
	hub := &fakeHub{}
	agentID := uuid.New()

	m := Render(event.Event{Kind: event.WithdrawalApproved, AgentID: agentID, Amount: decimal.NewFromInt(2500)})
	if err := NewWebsocketSink(hub).Deliver(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if hub.userID != agentID.String() {
		t.Errorf("sent to %s, want %s", hub.userID, agentID)
	}
	if !strings.Contains(string(hub.payload), `"type":"withdrawal_approved"`) {
		t.Errorf("payload = %s", hub.payload)
	}
}

func TestEmailSink_IgnoresAgentEvents(t *testing.T) {
	sink := NewEmailSink(SMTPOptions{Host: "127.0.0.1", Port: 1, AdminTo: "admin@example.com"})

	// Only WithdrawalRequested dials out, so this must return without touching SMTP.
	if err := sink.Deliver(context.Background(), Message{Event: event.Event{Kind: event.PhaseReleased}}); err != nil {
		t.Errorf("Deliver = %v, want nil", err)
	}
}
