package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/config"
	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := lib.OpenDatabase(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, lib.AutoMigrate(db))
	t.Cleanup(func() { _ = lib.CloseDatabase(db) })
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Password: "hashed",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func notificationCount(t *testing.T, db *gorm.DB, userID uint, kind models.NotificationType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ? AND type = ?", userID, kind).Count(&count).Error)
	return count
}

func followCount(t *testing.T, db *gorm.DB, followerID, followedID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = ? AND followed_id = ?", followerID, followedID).Count(&count).Error)
	return count
}

func newFollowService(db *gorm.DB) *FollowService {
	return NewFollowService(db, NewNotifier(db, nil))
}

func TestSendRequest(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowRequestPending, request.Status)
	assert.Equal(t, int64(1), notificationCount(t, db, bob.ID, models.NotificationTypeFollowRequest))

	incoming, err := svc.IncomingRequests(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	require.NotNil(t, incoming[0].From)
	assert.Equal(t, "alice", incoming[0].From.Username)

	outgoing, err := svc.OutgoingRequests(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, bob.ID, outgoing[0].ToUserID)

	_, err = svc.SendRequest(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrRequestAlreadySent)

	_, err = svc.SendRequest(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrCannotFollowSelf)

	_, err = svc.SendRequest(ctx, alice.ID, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAcceptCreatesSingleEdge(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	result, err := svc.Respond(ctx, bob.ID, request.ID, ActionAccept)
	require.NoError(t, err)
	require.NotNil(t, result.Follow)
	assert.Equal(t, alice.ID, result.Follow.FollowerID)
	assert.Equal(t, models.FollowRequestAccepted, result.Request.Status)

	assert.Equal(t, int64(1), followCount(t, db, alice.ID, bob.ID))
	assert.Equal(t, int64(0), notificationCount(t, db, bob.ID, models.NotificationTypeFollowRequest))
	assert.Equal(t, int64(1), notificationCount(t, db, alice.ID, models.NotificationTypeFollowAccepted))

	_, err = svc.Respond(ctx, bob.ID, request.ID, ActionAccept)
	assert.ErrorIs(t, err, ErrRequestHandled)
	assert.Equal(t, int64(1), followCount(t, db, alice.ID, bob.ID))

	_, err = svc.SendRequest(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrAlreadyFollowing)

	status, _, err := svc.Status(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowStatusFollowing, status)
}

func TestAcceptWithExistingEdge(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Follow{FollowerID: alice.ID, FollowedID: bob.ID, Status: "accepted"}).Error)

	result, err := svc.Respond(ctx, bob.ID, request.ID, ActionAccept)
	require.NoError(t, err)
	require.NotNil(t, result.Follow)
	assert.Equal(t, int64(1), followCount(t, db, alice.ID, bob.ID))
}

func TestRespondValidation(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Respond(ctx, bob.ID, request.ID, "maybe")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = svc.Respond(ctx, carol.ID, request.ID, ActionAccept)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = svc.Respond(ctx, bob.ID, 4242, ActionAccept)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRejectRemovesNotification(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	result, err := svc.Respond(ctx, bob.ID, request.ID, ActionReject)
	require.NoError(t, err)
	assert.Nil(t, result.Follow)
	assert.Equal(t, models.FollowRequestRejected, result.Request.Status)
	assert.Equal(t, int64(0), followCount(t, db, alice.ID, bob.ID))
	assert.Equal(t, int64(0), notificationCount(t, db, bob.ID, models.NotificationTypeFollowRequest))

	_, err = svc.Respond(ctx, bob.ID, request.ID, ActionReject)
	assert.ErrorIs(t, err, ErrRequestHandled)

	// a rejected request can be sent again
	again, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, request.ID, again.ID)
	assert.Equal(t, models.FollowRequestPending, again.Status)
}

func TestCancelRequest(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	assert.ErrorIs(t, svc.CancelRequest(ctx, alice.ID, bob.ID), ErrNoPendingRequest)

	_, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	status, _, err := svc.Status(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowStatusRequested, status)

	status, requestID, err := svc.Status(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowStatusIncoming, status)
	assert.NotZero(t, requestID)

	require.NoError(t, svc.CancelRequest(ctx, alice.ID, bob.ID))
	assert.Equal(t, int64(0), notificationCount(t, db, bob.ID, models.NotificationTypeFollowRequest))

	status, _, err = svc.Status(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowStatusNone, status)
}

func TestUnfollow(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	assert.ErrorIs(t, svc.Unfollow(ctx, alice.ID, bob.ID), ErrNotFollowing)

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.Respond(ctx, bob.ID, request.ID, ActionAccept)
	require.NoError(t, err)

	followers, err := svc.Followers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, alice.ID, followers[0].ID)

	following, err := svc.Following(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, bob.ID, following[0].ID)

	require.NoError(t, svc.Unfollow(ctx, alice.ID, bob.ID))
	assert.Equal(t, int64(0), followCount(t, db, alice.ID, bob.ID))
	assert.Equal(t, int64(0), notificationCount(t, db, alice.ID, models.NotificationTypeFollowAccepted))

	_, err = svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
}

func TestAcceptAfterRejectCreatesNoEdge(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	stale := *request

	_, err = svc.Respond(ctx, bob.ID, request.ID, ActionReject)
	require.NoError(t, err)

	// the accept read the request while it was still pending
	_, err = svc.accept(ctx, stale)
	assert.ErrorIs(t, err, ErrRequestHandled)

	var current models.FollowRequest
	require.NoError(t, db.First(&current, request.ID).Error)
	assert.Equal(t, models.FollowRequestRejected, current.Status)
	assert.Equal(t, int64(0), followCount(t, db, alice.ID, bob.ID))
	assert.Equal(t, int64(0), notificationCount(t, db, alice.ID, models.NotificationTypeFollowAccepted))
}

func TestAcceptAfterCancelCreatesNoEdge(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	stale := *request

	require.NoError(t, svc.CancelRequest(ctx, alice.ID, bob.ID))

	_, err = svc.accept(ctx, stale)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	assert.Equal(t, int64(0), followCount(t, db, alice.ID, bob.ID))
}

func TestAcceptWithStaleAcceptedRequest(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	stale := *request

	first, err := svc.accept(ctx, stale)
	require.NoError(t, err)
	second, err := svc.accept(ctx, stale)
	require.NoError(t, err)

	assert.Equal(t, first.Follow.ID, second.Follow.ID)
	assert.Equal(t, int64(1), followCount(t, db, alice.ID, bob.ID))
	assert.Equal(t, int64(1), notificationCount(t, db, alice.ID, models.NotificationTypeFollowAccepted))
}

func TestConcurrentAcceptCreatesOneEdge(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	errs := make([]error, 4)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Respond(ctx, bob.ID, request.ID, ActionAccept)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrRequestHandled)
	}
	assert.GreaterOrEqual(t, succeeded, 1)
	assert.Equal(t, int64(1), followCount(t, db, alice.ID, bob.ID))
	assert.Equal(t, int64(1), notificationCount(t, db, alice.ID, models.NotificationTypeFollowAccepted))
}

func TestConcurrentSendRequestNotifiesOnce(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	errs := make([]error, 4)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SendRequest(ctx, alice.ID, bob.ID)
		}(i)
	}
	wg.Wait()

	sent := 0
	for _, err := range errs {
		if err == nil {
			sent++
			continue
		}
		assert.ErrorIs(t, err, ErrRequestAlreadySent)
	}
	assert.Equal(t, 1, sent)
	assert.Equal(t, int64(1), notificationCount(t, db, bob.ID, models.NotificationTypeFollowRequest))
}

func TestResendReplacesNotification(t *testing.T) {
	db := setupDB(t)
	svc := newFollowService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	request, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Notification{
		UserID:          bob.ID,
		ActorID:         alice.ID,
		Type:            models.NotificationTypeFollowRequest,
		FollowRequestID: &request.ID,
	}).Error)
	require.NoError(t, db.Model(&models.FollowRequest{}).Where("id = ?", request.ID).
		Update("status", models.FollowRequestRejected).Error)

	_, err = svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), notificationCount(t, db, bob.ID, models.NotificationTypeFollowRequest))
}
