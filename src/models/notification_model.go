package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationTypeLike           NotificationType = "like"
	NotificationTypeComment        NotificationType = "comment"
	NotificationTypeCommentReply   NotificationType = "comment_reply"
	NotificationTypeFollowRequest  NotificationType = "follow_request"
	NotificationTypeFollowAccepted NotificationType = "follow_accepted"
)

// ExcerptLength caps the comment text copied into a notification
const ExcerptLength = 160

// Notification rows keep one nullable reference column per entity a
// notification can point at, so cleanup deletes by exact id.
type Notification struct {
	ID              uint             `gorm:"primaryKey"`
	UserID          uint             `gorm:"index;not null"`
	ActorID         uint             `gorm:"index;not null"`
	Type            NotificationType `gorm:"size:32;index;not null"`
	PostID          *uint            `gorm:"index"`
	CommentID       *uint            `gorm:"index"`
	ParentCommentID *uint            `gorm:"index"`
	LikeID          *uint            `gorm:"index"`
	FollowRequestID *uint            `gorm:"index"`
	Excerpt         string           `gorm:"size:640"`
	Read            bool             `gorm:"not null;default:false;index"`
	CreatedAt       time.Time        `gorm:"index"`
	Actor           *User            `gorm:"foreignKey:ActorID"`
}

// NotificationPayload is the typed body of a notification; each
// notification type has exactly one payload variant.
type NotificationPayload interface {
	Type() NotificationType
	Actor() uint
	apply(n *Notification)
}

type LikePayload struct {
	FromUserID uint `json:"fromUserId"`
	PostID     uint `json:"postId"`
	LikeID     uint `json:"likeId"`
}

type CommentPayload struct {
	FromUserID uint   `json:"fromUserId"`
	PostID     uint   `json:"postId"`
	CommentID  uint   `json:"commentId"`
	Excerpt    string `json:"excerpt"`
}

type CommentReplyPayload struct {
	FromUserID uint   `json:"fromUserId"`
	PostID     uint   `json:"postId"`
	CommentID  uint   `json:"commentId"`
	ParentID   uint   `json:"parentId"`
	Excerpt    string `json:"excerpt"`
}

type FollowRequestPayload struct {
	FromUserID uint `json:"fromUserId"`
	RequestID  uint `json:"requestId"`
}

type FollowAcceptedPayload struct {
	FromUserID uint `json:"fromUserId"`
	RequestID  uint `json:"requestId"`
}

func (LikePayload) Type() NotificationType           { return NotificationTypeLike }
func (CommentPayload) Type() NotificationType        { return NotificationTypeComment }
func (CommentReplyPayload) Type() NotificationType   { return NotificationTypeCommentReply }
func (FollowRequestPayload) Type() NotificationType  { return NotificationTypeFollowRequest }
func (FollowAcceptedPayload) Type() NotificationType { return NotificationTypeFollowAccepted }

func (p LikePayload) Actor() uint           { return p.FromUserID }
func (p CommentPayload) Actor() uint        { return p.FromUserID }
func (p CommentReplyPayload) Actor() uint   { return p.FromUserID }
func (p FollowRequestPayload) Actor() uint  { return p.FromUserID }
func (p FollowAcceptedPayload) Actor() uint { return p.FromUserID }

func (p LikePayload) apply(n *Notification) {
	n.PostID = ref(p.PostID)
	n.LikeID = ref(p.LikeID)
}

func (p CommentPayload) apply(n *Notification) {
	n.PostID = ref(p.PostID)
	n.CommentID = ref(p.CommentID)
	n.Excerpt = excerpt(p.Excerpt)
}

func (p CommentReplyPayload) apply(n *Notification) {
	n.PostID = ref(p.PostID)
	n.CommentID = ref(p.CommentID)
	n.ParentCommentID = ref(p.ParentID)
	n.Excerpt = excerpt(p.Excerpt)
}

func (p FollowRequestPayload) apply(n *Notification) {
	n.FollowRequestID = ref(p.RequestID)
}

func (p FollowAcceptedPayload) apply(n *Notification) {
	n.FollowRequestID = ref(p.RequestID)
}

// NewNotification builds the row for recipient carrying payload p
func NewNotification(recipient uint, p NotificationPayload) Notification {
	n := Notification{
		UserID:  recipient,
		ActorID: p.Actor(),
		Type:    p.Type(),
	}
	p.apply(&n)
	return n
}

// Payload rebuilds the typed payload from the stored reference columns
func (n Notification) Payload() NotificationPayload {
	switch n.Type {
	case NotificationTypeLike:
		return LikePayload{FromUserID: n.ActorID, PostID: deref(n.PostID), LikeID: deref(n.LikeID)}
	case NotificationTypeComment:
		return CommentPayload{FromUserID: n.ActorID, PostID: deref(n.PostID), CommentID: deref(n.CommentID), Excerpt: n.Excerpt}
	case NotificationTypeCommentReply:
		return CommentReplyPayload{FromUserID: n.ActorID, PostID: deref(n.PostID), CommentID: deref(n.CommentID), ParentID: deref(n.ParentCommentID), Excerpt: n.Excerpt}
	case NotificationTypeFollowRequest:
		return FollowRequestPayload{FromUserID: n.ActorID, RequestID: deref(n.FollowRequestID)}
	case NotificationTypeFollowAccepted:
		return FollowAcceptedPayload{FromUserID: n.ActorID, RequestID: deref(n.FollowRequestID)}
	}
	return nil
}

var ErrUnknownNotificationType = errors.New("unknown notification type")

// DecodePayload parses raw JSON into the payload variant for t and checks
// that the references the variant needs are present
func DecodePayload(t NotificationType, raw json.RawMessage) (NotificationPayload, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var (
		p       NotificationPayload
		err     error
		missing string
	)
	switch t {
	case NotificationTypeLike:
		var v LikePayload
		err = json.Unmarshal(raw, &v)
		if v.PostID == 0 {
			missing = "postId"
		}
		p = v
	case NotificationTypeComment:
		var v CommentPayload
		err = json.Unmarshal(raw, &v)
		if v.PostID == 0 || v.CommentID == 0 {
			missing = "postId and commentId"
		}
		p = v
	case NotificationTypeCommentReply:
		var v CommentReplyPayload
		err = json.Unmarshal(raw, &v)
		if v.PostID == 0 || v.CommentID == 0 || v.ParentID == 0 {
			missing = "postId, commentId and parentId"
		}
		p = v
	case NotificationTypeFollowRequest:
		var v FollowRequestPayload
		err = json.Unmarshal(raw, &v)
		if v.RequestID == 0 {
			missing = "requestId"
		}
		p = v
	case NotificationTypeFollowAccepted:
		var v FollowAcceptedPayload
		err = json.Unmarshal(raw, &v)
		if v.RequestID == 0 {
			missing = "requestId"
		}
		p = v
	default:
		return nil, ErrUnknownNotificationType
	}

	if err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", t, err)
	}
	if missing != "" {
		return nil, fmt.Errorf("%s payload requires %s", t, missing)
	}
	return p, nil
}

// WithActor returns a copy of p attributed to actor
func WithActor(p NotificationPayload, actor uint) NotificationPayload {
	switch v := p.(type) {
	case LikePayload:
		v.FromUserID = actor
		return v
	case CommentPayload:
		v.FromUserID = actor
		return v
	case CommentReplyPayload:
		v.FromUserID = actor
		return v
	case FollowRequestPayload:
		v.FromUserID = actor
		return v
	case FollowAcceptedPayload:
		v.FromUserID = actor
		return v
	}
	return p
}

// MarshalJSON renders the stored columns as {type, data} with a typed payload
func (n Notification) MarshalJSON() ([]byte, error) {
	var from *UserDto
	if n.Actor != nil {
		summary := n.Actor.Summary()
		from = &summary
	}
	return json.Marshal(&struct {
		ID        uint                `json:"id"`
		UserID    uint                `json:"userId"`
		Type      NotificationType    `json:"type"`
		Data      NotificationPayload `json:"data"`
		Read      bool                `json:"read"`
		CreatedAt time.Time           `json:"createdAt"`
		FromUser  *UserDto            `json:"fromUser,omitempty"`
	}{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Data:      n.Payload(),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		FromUser:  from,
	})
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) > ExcerptLength {
		return string(r[:ExcerptLength])
	}
	return s
}

func ref(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func deref(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}
