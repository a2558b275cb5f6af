package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/odling/odling-api/src/models"
)

var (
	ErrCannotFollowSelf   = errors.New("you cannot follow yourself")
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyFollowing   = errors.New("already following")
	ErrRequestAlreadySent = errors.New("follow request already sent")
	ErrNoPendingRequest   = errors.New("no pending request")
	ErrRequestNotFound    = errors.New("request not found")
	ErrRequestHandled     = errors.New("request already handled")
	ErrNotFollowing       = errors.New("not following")
	ErrInvalidAction      = errors.New("invalid action")
)

type RespondAction string

const (
	ActionAccept RespondAction = "accept"
	ActionReject RespondAction = "reject"
)

// FollowService owns the follow request workflow and the follow graph
type FollowService struct {
	db       *gorm.DB
	notifier *Notifier
}

func NewFollowService(db *gorm.DB, notifier *Notifier) *FollowService {
	return &FollowService{db: db, notifier: notifier}
}

// SendRequest creates or reopens the request from -> to and notifies the target
func (s *FollowService) SendRequest(ctx context.Context, fromID, toID uint) (*models.FollowRequest, error) {
	if fromID == toID {
		return nil, ErrCannotFollowSelf
	}

	db := s.db.WithContext(ctx)
	if err := db.Where("id = ? AND deleted = ?", toID, false).First(&models.User{}).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	following, err := s.isFollowing(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if following {
		return nil, ErrAlreadyFollowing
	}

	var (
		request models.FollowRequest
		created *models.Notification
	)
	err = db.Transaction(func(tx *gorm.DB) error {
		var pending int64
		err := tx.Model(&models.FollowRequest{}).
			Where("from_user_id = ? AND to_user_id = ? AND status = ?", fromID, toID, models.FollowRequestPending).
			Count(&pending).Error
		if err != nil {
			return err
		}
		if pending > 0 {
			return ErrRequestAlreadySent
		}

		// a rejected or accepted-then-unfollowed request for the pair is reopened in place
		request = models.FollowRequest{FromUserID: fromID, ToUserID: toID, Status: models.FollowRequestPending}
		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":     models.FollowRequestPending,
				"updated_at": time.Now(),
			}),
		}).Create(&request).Error
		if err != nil {
			return fmt.Errorf("failed to save follow request: %w", err)
		}
		if err := tx.Where("from_user_id = ? AND to_user_id = ?", fromID, toID).First(&request).Error; err != nil {
			return err
		}

		// the upsert holds the request row, so concurrent senders replace the
		// notification one at a time; a failure only rolls back the savepoint
		err = tx.Transaction(func(nt *gorm.DB) error {
			err := nt.Where("follow_request_id = ? AND type = ?", request.ID, models.NotificationTypeFollowRequest).
				Delete(&models.Notification{}).Error
			if err != nil {
				return err
			}
			created, err = s.notifier.insert(nt, toID, models.FollowRequestPayload{FromUserID: fromID, RequestID: request.ID})
			return err
		})
		if err != nil {
			log.Printf("could not replace follow request notification: %v", err)
			created = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created != nil {
		s.notifier.publish(created)
	}
	return &request, nil
}

// CancelRequest withdraws a pending request sent by fromID
func (s *FollowService) CancelRequest(ctx context.Context, fromID, toID uint) error {
	var request models.FollowRequest
	err := s.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ? AND status = ?", fromID, toID, models.FollowRequestPending).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoPendingRequest
		}
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&request).Error; err != nil {
		return err
	}
	s.notifier.RemoveForFollowRequest(ctx, request.ID, models.NotificationTypeFollowRequest)
	return nil
}

// IncomingRequests lists pending requests addressed to userID, newest first
func (s *FollowService) IncomingRequests(ctx context.Context, userID uint) ([]models.FollowRequest, error) {
	var requests []models.FollowRequest
	err := s.db.WithContext(ctx).
		Preload("From").
		Where("to_user_id = ? AND status = ?", userID, models.FollowRequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// OutgoingRequests lists pending requests sent by userID, newest first
func (s *FollowService) OutgoingRequests(ctx context.Context, userID uint) ([]models.FollowRequest, error) {
	var requests []models.FollowRequest
	err := s.db.WithContext(ctx).
		Preload("To").
		Where("from_user_id = ? AND status = ?", userID, models.FollowRequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// RespondResult is the outcome of accepting or rejecting a request
type RespondResult struct {
	Request models.FollowRequest
	Follow  *models.Follow
}

// Respond accepts or rejects a pending request addressed to userID.
// Accepting yields exactly one follow edge even under concurrent calls.
func (s *FollowService) Respond(ctx context.Context, userID, requestID uint, action RespondAction) (*RespondResult, error) {
	if action != ActionAccept && action != ActionReject {
		return nil, ErrInvalidAction
	}

	var request models.FollowRequest
	if err := s.db.WithContext(ctx).First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if request.ToUserID != userID {
		return nil, ErrRequestNotFound
	}
	if request.Status != models.FollowRequestPending {
		return nil, ErrRequestHandled
	}

	if action == ActionReject {
		return s.reject(ctx, request)
	}
	return s.accept(ctx, request)
}

func (s *FollowService) reject(ctx context.Context, request models.FollowRequest) (*RespondResult, error) {
	res := s.db.WithContext(ctx).Model(&models.FollowRequest{}).
		Where("id = ? AND status = ?", request.ID, models.FollowRequestPending).
		Updates(map[string]interface{}{"status": models.FollowRequestRejected, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrRequestHandled
	}

	s.notifier.RemoveForFollowRequest(ctx, request.ID, models.NotificationTypeFollowRequest)

	request.Status = models.FollowRequestRejected
	return &RespondResult{Request: request}, nil
}

func (s *FollowService) accept(ctx context.Context, request models.FollowRequest) (*RespondResult, error) {
	var (
		follow       models.Follow
		transitioned bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.FollowRequest{}).
			Where("id = ? AND status = ?", request.ID, models.FollowRequestPending).
			Updates(map[string]interface{}{"status": models.FollowRequestAccepted, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		transitioned = res.RowsAffected == 1

		// someone else moved the request first; only an accept by them leads to an edge
		if !transitioned {
			var current models.FollowRequest
			if err := tx.First(&current, request.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrRequestNotFound
				}
				return err
			}
			if current.Status != models.FollowRequestAccepted {
				return ErrRequestHandled
			}
		}

		edge := models.Follow{FollowerID: request.FromUserID, FollowedID: request.ToUserID, Status: "accepted"}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
			return err
		}
		return tx.Where("follower_id = ? AND followed_id = ?", request.FromUserID, request.ToUserID).First(&follow).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent accept created the edge first
		err = s.db.WithContext(ctx).
			Where("follower_id = ? AND followed_id = ?", request.FromUserID, request.ToUserID).
			First(&follow).Error
		transitioned = false
	}
	if errors.Is(err, ErrRequestHandled) || errors.Is(err, ErrRequestNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to accept follow request: %w", err)
	}

	if transitioned {
		s.notifier.RemoveForFollowRequest(ctx, request.ID, models.NotificationTypeFollowRequest)
		s.notifier.Notify(ctx, request.FromUserID, models.FollowAcceptedPayload{
			FromUserID: request.ToUserID,
			RequestID:  request.ID,
		})
	}

	request.Status = models.FollowRequestAccepted
	return &RespondResult{Request: request, Follow: &follow}, nil
}

// Unfollow removes the follow edge follower -> followed
func (s *FollowService) Unfollow(ctx context.Context, followerID, followedID uint) error {
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFollowing
	}

	// the accepted request is history now; drop it and the notifications that
	// point at it so a new one can be sent cleanly
	var accepted models.FollowRequest
	err := s.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ? AND status = ?", followerID, followedID, models.FollowRequestAccepted).
		First(&accepted).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		log.Printf("could not load accepted follow request: %v", err)
		return nil
	}

	if err := s.db.WithContext(ctx).Delete(&accepted).Error; err != nil {
		log.Printf("could not clear accepted follow request: %v", err)
		return nil
	}
	s.notifier.RemoveForFollowRequest(ctx, accepted.ID,
		models.NotificationTypeFollowRequest, models.NotificationTypeFollowAccepted)
	return nil
}

// Followers lists the users following userID
func (s *FollowService) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followed_id = ? AND users.deleted = ?", userID, false).
		Order("follows.created_at DESC").
		Find(&users).Error
	return users, err
}

// Following lists the users userID follows
func (s *FollowService) Following(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN follows ON follows.followed_id = users.id").
		Where("follows.follower_id = ? AND users.deleted = ?", userID, false).
		Order("follows.created_at DESC").
		Find(&users).Error
	return users, err
}

// Status describes how userID relates to otherID. For incoming requests the
// pending request id is returned as well.
func (s *FollowService) Status(ctx context.Context, userID, otherID uint) (models.FollowStatus, uint, error) {
	following, err := s.isFollowing(ctx, userID, otherID)
	if err != nil {
		return "", 0, err
	}
	if following {
		return models.FollowStatusFollowing, 0, nil
	}

	var requests []models.FollowRequest
	err = s.db.WithContext(ctx).
		Where("status = ? AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))",
			models.FollowRequestPending, userID, otherID, otherID, userID).
		Find(&requests).Error
	if err != nil {
		return "", 0, err
	}
	for _, r := range requests {
		if r.FromUserID == userID {
			return models.FollowStatusRequested, 0, nil
		}
	}
	for _, r := range requests {
		if r.FromUserID == otherID {
			return models.FollowStatusIncoming, r.ID, nil
		}
	}
	return models.FollowStatusNone, 0, nil
}

func (s *FollowService) isFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	return count > 0, err
}
