package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odling/odling-api/src/events"
	"github.com/odling/odling-api/src/models"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []any
}

func (p *recordingPublisher) Publish(subject string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() {}

func TestNotifierPublishesCreatedEvent(t *testing.T) {
	db := setupDB(t)
	pub := &recordingPublisher{}
	notifier := NewNotifier(db, pub)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	n, err := notifier.Create(context.Background(), bob.ID, models.LikePayload{FromUserID: alice.ID, PostID: 1, LikeID: 2})
	require.NoError(t, err)
	assert.NotZero(t, n.ID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.NotificationCreated, pub.subjects[0])
	event := pub.events[0].(events.NotificationCreatedEvent)
	assert.Equal(t, n.ID, event.NotificationID)
	assert.Equal(t, bob.ID, event.RecipientID)
}

func TestNotifySkipsSelf(t *testing.T) {
	db := setupDB(t)
	notifier := NewNotifier(db, nil)
	alice := createUser(t, db, "alice")

	notifier.Notify(context.Background(), alice.ID, models.LikePayload{FromUserID: alice.ID, PostID: 1, LikeID: 2})
	assert.Equal(t, int64(0), notificationCount(t, db, alice.ID, models.NotificationTypeLike))
}

func TestRemoveForLikeIsExact(t *testing.T) {
	db := setupDB(t)
	notifier := NewNotifier(db, nil)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	notifier.Notify(ctx, bob.ID, models.LikePayload{FromUserID: alice.ID, PostID: 1, LikeID: 10})
	notifier.Notify(ctx, bob.ID, models.LikePayload{FromUserID: alice.ID, PostID: 2, LikeID: 11})

	notifier.RemoveForLike(ctx, 10)

	var remaining []models.Notification
	require.NoError(t, db.Where("user_id = ?", bob.ID).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, uint(11), *remaining[0].LikeID)
}
