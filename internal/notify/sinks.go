package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"neelgund-backend/internal/event"
	"neelgund-backend/internal/model"

	"gopkg.in/gomail.v2"
	"gorm.io/datatypes"
)

// LiveHub pushes payloads to an agent's open websocket connections.
type LiveHub interface {
	SendToUser(userID string, payload []byte)
}

type WebsocketSink struct {
	hub LiveHub
}

func NewWebsocketSink(hub LiveHub) *WebsocketSink {
	return &WebsocketSink{hub: hub}
}

func (s *WebsocketSink) Name() string { return "websocket" }

func (s *WebsocketSink) Deliver(_ context.Context, m Message) error {
	payload, err := json.Marshal(map[string]interface{}{
		"type":  m.Event.Kind,
		"title": m.Title,
		"body":  m.Body,
		"data":  m.Event,
	})
	if err != nil {
		return err
	}
	s.hub.SendToUser(m.Event.AgentID.String(), payload)
	return nil
}

// InboxStore persists notifications for the agent's in-app list.
type InboxStore interface {
	Create(ctx context.Context, n *model.Notification) error
}

type InboxSink struct {
	store InboxStore
}

func NewInboxSink(store InboxStore) *InboxSink {
	return &InboxSink{store: store}
}

func (s *InboxSink) Name() string { return "inbox" }

func (s *InboxSink) Deliver(ctx context.Context, m Message) error {
	// Admin-facing events stay out of the agent's inbox.
	if m.Event.Kind == event.WithdrawalRequested {
		return nil
	}
	data := datatypes.JSONMap{}
	for k, v := range m.Data {
		data[k] = v
	}
	return s.store.Create(ctx, &model.Notification{
		AgentID: m.Event.AgentID,
		Kind:    string(m.Event.Kind),
		Title:   m.Title,
		Body:    m.Body,
		Data:    data,
		IsRead:  false,
	})
}

type SMTPOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	AdminTo  string
}

// EmailSink mails the admin about new withdrawal requests.
type EmailSink struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewEmailSink(opts SMTPOptions) *EmailSink {
	from := opts.From
	if from == "" {
		from = opts.User
	}
	return &EmailSink{
		dialer: gomail.NewDialer(opts.Host, opts.Port, opts.User, opts.Password),
		from:   from,
		to:     opts.AdminTo,
	}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(_ context.Context, m Message) error {
	if m.Event.Kind != event.WithdrawalRequested {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", s.to)
	msg.SetHeader("Subject", "New commission withdrawal request")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Agent %s requested a withdrawal of ₹%s.\nRequest: %s\n",
		m.Event.AgentID, m.Event.Amount.StringFixed(2), m.Event.WithdrawalID,
	))
	return s.dialer.DialAndSend(msg)
}

// Invalidator drops cached read models for an agent.
type Invalidator interface {
	Invalidate(ctx context.Context, agentID string) error
}

type CacheSink struct {
	cache Invalidator
}

func NewCacheSink(cache Invalidator) *CacheSink {
	return &CacheSink{cache: cache}
}

func (s *CacheSink) Name() string { return "cache" }

func (s *CacheSink) Deliver(ctx context.Context, m Message) error {
	switch m.Event.Kind {
	case event.AssignmentCreated, event.PhaseReleased, event.CommissionAdjusted, event.WithdrawalApproved:
		return s.cache.Invalidate(ctx, m.Event.AgentID.String())
	}
	return nil
}
