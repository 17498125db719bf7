package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

type FirebaseOptions struct {
	ProjectID         string
	CredentialsFile   string
	CredentialsBase64 string
}

// NewMessagingClient builds an FCM client from base64 credentials, falling
// back to a credentials file. It returns nil when neither is configured.
func NewMessagingClient(ctx context.Context, opts FirebaseOptions) (*messaging.Client, error) {
	var opt option.ClientOption
	switch {
	case opts.CredentialsBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(opts.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("decode firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	case opts.CredentialsFile != "":
		opt = option.WithCredentialsFile(opts.CredentialsFile)
	default:
		log.Println("Firebase credentials not set, push notifications disabled")
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: opts.ProjectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return client, nil
}

// DeviceTokenStore is where agents' FCM tokens live.
type DeviceTokenStore interface {
	DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	DeleteDeviceToken(ctx context.Context, token string) error
}

type pushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSink pushes messages to every registered device of the agent.
type FCMSink struct {
	client pushSender
	tokens DeviceTokenStore
}

func NewFCMSink(client *messaging.Client, tokens DeviceTokenStore) *FCMSink {
	return &FCMSink{client: client, tokens: tokens}
}

func (s *FCMSink) Name() string { return "fcm" }

func (s *FCMSink) Deliver(ctx context.Context, m Message) error {
	tokens, err := s.tokens.DeviceTokens(ctx, m.Event.AgentID)
	if err != nil {
		return fmt.Errorf("load device tokens: %w", err)
	}

	var lastErr error
	for _, token := range tokens {
		_, err := s.client.Send(ctx, &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: m.Title,
				Body:  m.Body,
			},
			Data: m.Data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound: "default",
				},
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						Alert: &messaging.ApsAlert{Title: m.Title, Body: m.Body},
						Sound: "default",
					},
				},
			},
		})
		if err == nil {
			continue
		}
		if messaging.IsUnregistered(err) {
			// The device is gone; forget the token.
			if delErr := s.tokens.DeleteDeviceToken(ctx, token); delErr != nil {
				log.Printf("fcm: failed to delete stale token: %v", delErr)
			}
			continue
		}
		lastErr = err
	}
	return lastErr
}
