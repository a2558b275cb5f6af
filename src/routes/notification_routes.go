package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/odling/odling-api/src/controllers"
	"github.com/odling/odling-api/src/middleware"
)

// NotificationRoutes sets up listing, creating, marking as read and deleting notifications
func NotificationRoutes(app fiber.Router, h *controllers.NotificationController, auth *middleware.Auth) {
	group := app.Group("/notifications", auth.ProtectRoute)

	group.Get("/", h.GetUserNotifications)
	group.Post("/", h.CreateNotification)
	group.Post("/mark-all-read", h.MarkAllAsRead)
	group.Post("/:id/read", h.MarkNotificationAsRead)
	group.Delete("/:id", h.DeleteNotification)
}
