package services

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/odling/odling-api/src/events"
	"github.com/odling/odling-api/src/models"
)

// Notifier writes and cleans up notifications. Notifications are a side
// channel: Notify and the Remove helpers log failures instead of returning them.
type Notifier struct {
	db        *gorm.DB
	publisher events.Publisher
}

func NewNotifier(db *gorm.DB, publisher events.Publisher) *Notifier {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Notifier{db: db, publisher: publisher}
}

// Create stores a notification for recipient and publishes it
func (n *Notifier) Create(ctx context.Context, recipient uint, p models.NotificationPayload) (*models.Notification, error) {
	notification, err := n.insert(n.db.WithContext(ctx), recipient, p)
	if err != nil {
		return nil, err
	}
	n.publish(notification)
	return notification, nil
}

// insert writes the row through db, which may be a transaction; the caller
// publishes once the row is committed
func (n *Notifier) insert(db *gorm.DB, recipient uint, p models.NotificationPayload) (*models.Notification, error) {
	notification := models.NewNotification(recipient, p)
	if err := db.Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create %s notification: %w", p.Type(), err)
	}
	return &notification, nil
}

func (n *Notifier) publish(notification *models.Notification) {
	event := events.NotificationCreatedEvent{
		NotificationID: notification.ID,
		RecipientID:    notification.UserID,
		Type:           notification.Type,
		Data:           notification.Payload(),
		CreatedAt:      notification.CreatedAt,
	}
	if err := n.publisher.Publish(events.NotificationCreated, event); err != nil {
		log.Printf("Error publishing %s: %v", events.NotificationCreated, err)
	}
}

// Notify is the best-effort form of Create. Users are never notified about
// their own actions.
func (n *Notifier) Notify(ctx context.Context, recipient uint, p models.NotificationPayload) {
	if recipient == 0 || recipient == p.Actor() {
		return
	}
	if _, err := n.Create(ctx, recipient, p); err != nil {
		log.Printf("Error creating notification: %v", err)
	}
}

// RemoveForFollowRequest deletes notifications of the given types that point at a follow request
func (n *Notifier) RemoveForFollowRequest(ctx context.Context, requestID uint, types ...models.NotificationType) {
	n.remove(ctx, "follow request", n.db.Where("follow_request_id = ? AND type IN ?", requestID, types))
}

// RemoveForLike deletes the notification created for a like
func (n *Notifier) RemoveForLike(ctx context.Context, likeID uint) {
	n.remove(ctx, "like", n.db.Where("like_id = ? AND type = ?", likeID, models.NotificationTypeLike))
}

func (n *Notifier) remove(ctx context.Context, what string, scope *gorm.DB) {
	if err := scope.WithContext(ctx).Delete(&models.Notification{}).Error; err != nil {
		log.Printf("could not remove %s notification: %v", what, err)
	}
}
