package controllers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/models"
	"github.com/odling/odling-api/src/services"
)

const (
	defaultNotificationLimit = 40
	maxNotificationLimit     = 200
)

type NotificationController struct {
	db       *gorm.DB
	notifier *services.Notifier
}

func NewNotificationController(db *gorm.DB, notifier *services.Notifier) *NotificationController {
	return &NotificationController{db: db, notifier: notifier}
}

// GetUserNotifications returns the caller's notifications, newest first, with the unread total
func (h *NotificationController) GetUserNotifications(c *fiber.Ctx) error {
	user := lib.CurrentUser(c)
	db := h.db.WithContext(c.UserContext())
	limit := lib.Clamp(lib.QueryInt(c, "limit", defaultNotificationLimit), 1, maxNotificationLimit)

	query := db.Preload("Actor").Where("user_id = ?", user.ID)
	if c.QueryBool("unreadOnly", false) {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return lib.ServerError("getUserNotifications", err)
	}

	var unread int64
	if err := db.Model(&models.Notification{}).Where("user_id = ? AND read = ?", user.ID, false).Count(&unread).Error; err != nil {
		return lib.ServerError("getUserNotifications", err)
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}
	return c.JSON(fiber.Map{
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

// CreateNotification stores a typed notification from the caller to userId
func (h *NotificationController) CreateNotification(c *fiber.Ctx) error {
	var req struct {
		UserID uint                    `json:"userId"`
		Type   models.NotificationType `json:"type"`
		Data   json.RawMessage         `json:"data"`
	}
	if err := c.BodyParser(&req); err != nil {
		return lib.BadRequest("Invalid request body")
	}
	if req.UserID == 0 || req.Type == "" {
		return lib.BadRequest("userId and type are required")
	}

	payload, err := models.DecodePayload(req.Type, req.Data)
	if err != nil {
		if errors.Is(err, models.ErrUnknownNotificationType) {
			return lib.BadRequest("Unknown notification type")
		}
		return lib.BadRequest(err.Error())
	}

	ctx := c.UserContext()
	var recipient models.User
	if err := h.db.WithContext(ctx).Where("id = ? AND deleted = ?", req.UserID, false).First(&recipient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lib.NotFound("User not found")
		}
		return lib.ServerError("createNotification", err)
	}

	user := lib.CurrentUser(c)
	notification, err := h.notifier.Create(ctx, recipient.ID, models.WithActor(payload, user.ID))
	if err != nil {
		return lib.ServerError("createNotification", err)
	}
	notification.Actor = &user

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"notification": notification})
}

// MarkNotificationAsRead flags one of the caller's notifications as read
func (h *NotificationController) MarkNotificationAsRead(c *fiber.Ctx) error {
	id, ok := lib.ParamID(c, "id")
	if !ok {
		return lib.BadRequest("Invalid notification id")
	}

	db := h.db.WithContext(c.UserContext())
	var notification models.Notification
	if err := db.Where("id = ? AND user_id = ?", id, lib.CurrentUser(c).ID).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lib.NotFound("Notification not found")
		}
		return lib.ServerError("markNotificationAsRead", err)
	}

	if err := db.Model(&models.Notification{}).Where("id = ?", notification.ID).Update("read", true).Error; err != nil {
		return lib.ServerError("markNotificationAsRead", err)
	}
	return c.JSON(lib.MessageResponse("Notification marked as read"))
}

// MarkAllAsRead flags every unread notification of the caller as read
func (h *NotificationController) MarkAllAsRead(c *fiber.Ctx) error {
	res := h.db.WithContext(c.UserContext()).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", lib.CurrentUser(c).ID, false).
		Update("read", true)
	if res.Error != nil {
		return lib.ServerError("markAllAsRead", res.Error)
	}

	return c.JSON(fiber.Map{
		"message": "All notifications marked as read",
		"updated": res.RowsAffected,
	})
}

// DeleteNotification removes one of the caller's notifications
func (h *NotificationController) DeleteNotification(c *fiber.Ctx) error {
	id, ok := lib.ParamID(c, "id")
	if !ok {
		return lib.BadRequest("Invalid notification id")
	}

	res := h.db.WithContext(c.UserContext()).
		Where("id = ? AND user_id = ?", id, lib.CurrentUser(c).ID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return lib.ServerError("deleteNotification", res.Error)
	}
	if res.RowsAffected == 0 {
		return lib.NotFound("Notification not found")
	}
	return c.JSON(lib.MessageResponse("Notification deleted"))
}
