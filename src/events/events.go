package events

import (
	"time"

	"github.com/odling/odling-api/src/models"
)

const (
	NotificationCreated = "notification.created"
)

// Event payloads
type NotificationCreatedEvent struct {
	NotificationID uint                       `json:"notification_id"`
	RecipientID    uint                       `json:"recipient_id"`
	Type           models.NotificationType    `json:"type"`
	Data           models.NotificationPayload `json:"data"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// Publisher delivers domain events to whoever listens outside this process
type Publisher interface {
	Publish(subject string, event any) error
	Close()
}

// NopPublisher drops every event; used when no broker is configured
type NopPublisher struct{}

func (NopPublisher) Publish(string, any) error { return nil }
func (NopPublisher) Close()                    {}
