package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/odling/odling-api/src/controllers"
	"github.com/odling/odling-api/src/middleware"
)

// AuthRoutes sets up signup, login, logout, guest access and the current user lookup
func AuthRoutes(app fiber.Router, h *controllers.AuthController, auth *middleware.Auth) {
	group := app.Group("/auth")

	group.Post("/signup", auth.GuestOnly, h.Signup)
	group.Post("/login", auth.GuestOnly, h.Login)
	group.Post("/logout", h.Logout)
	group.Post("/guest", h.Guest)
	group.Get("/me", auth.ProtectRoute, h.GetCurrentUser)
}
