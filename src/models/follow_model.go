package models

import (
	"time"
)

type Follow struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	FollowerID uint      `json:"followerId" gorm:"not null;uniqueIndex:idx_follow_pair"`
	FollowedID uint      `json:"followedId" gorm:"not null;uniqueIndex:idx_follow_pair;index"`
	Status     string    `json:"status" gorm:"size:20;not null;default:'accepted'"`
	CreatedAt  time.Time `json:"createdAt"`
	Follower   User      `json:"-" gorm:"foreignKey:FollowerID"`
	Followed   User      `json:"-" gorm:"foreignKey:FollowedID"`
}

type FollowRequest struct {
	ID         uint                `json:"id" gorm:"primaryKey"`
	FromUserID uint                `json:"fromUserId" gorm:"not null;uniqueIndex:idx_follow_request_pair"`
	ToUserID   uint                `json:"toUserId" gorm:"not null;uniqueIndex:idx_follow_request_pair;index"`
	Status     FollowRequestStatus `json:"status" gorm:"size:20;not null;default:'pending';index"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
	From       *User               `json:"-" gorm:"foreignKey:FromUserID"`
	To         *User               `json:"-" gorm:"foreignKey:ToUserID"`
}

type FollowRequestStatus string

const (
	FollowRequestPending  FollowRequestStatus = "pending"
	FollowRequestAccepted FollowRequestStatus = "accepted"
	FollowRequestRejected FollowRequestStatus = "rejected"
)

// FollowStatus describes the relationship of the caller to another user
type FollowStatus string

const (
	FollowStatusFollowing FollowStatus = "following"
	FollowStatusRequested FollowStatus = "requested"
	FollowStatusIncoming  FollowStatus = "incoming"
	FollowStatusNone      FollowStatus = "none"
)

type FollowRequestDto struct {
	ID         uint                `json:"id"`
	FromUserID uint                `json:"fromUserId"`
	ToUserID   uint                `json:"toUserId"`
	Status     FollowRequestStatus `json:"status"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
	From       *UserDto            `json:"from,omitempty"`
	To         *UserDto            `json:"to,omitempty"`
}

func (r FollowRequest) ToDto() FollowRequestDto {
	dto := FollowRequestDto{
		ID:         r.ID,
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.From != nil {
		from := r.From.Summary()
		dto.From = &from
	}
	if r.To != nil {
		to := r.To.Summary()
		dto.To = &to
	}
	return dto
}
