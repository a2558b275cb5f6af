package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/odling/odling-api/src/controllers"
	"github.com/odling/odling-api/src/middleware"
)

// UserRoutes sets up user search and public profiles
func UserRoutes(app fiber.Router, h *controllers.UserController) {
	group := app.Group("/users")

	group.Get("/", h.SearchUsers)
	group.Get("/:id", h.GetUserProfile)
}

// ProfileRoutes sets up updates to the authenticated user's own profile
func ProfileRoutes(app fiber.Router, h *controllers.ProfileController, auth *middleware.Auth) {
	group := app.Group("/profile", auth.ProtectRoute)

	group.Put("/", h.UpdateProfile)
}

// PictureRoutes sets up profile picture upload and removal
func PictureRoutes(app fiber.Router, h *controllers.PictureController, auth *middleware.Auth) {
	group := app.Group("/pictures", auth.ProtectRoute)

	group.Put("/", h.UploadProfilePicture)
	group.Delete("/", h.DeleteProfilePicture)
}
