package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/odling/odling-api/src/controllers"
	"github.com/odling/odling-api/src/middleware"
)

// FollowRoutes sets up follow requests, responses, unfollowing and follower listings
func FollowRoutes(app fiber.Router, h *controllers.FollowController, auth *middleware.Auth) {
	group := app.Group("/follows")

	group.Get("/requests/incoming", auth.ProtectRoute, h.GetIncomingRequests)
	group.Get("/requests/outgoing", auth.ProtectRoute, h.GetOutgoingRequests)
	group.Post("/requests/:id/respond", auth.ProtectRoute, h.RespondToRequest)
	group.Post("/requests/:userId", auth.ProtectRoute, h.SendFollowRequest)
	group.Delete("/requests/:userId", auth.ProtectRoute, h.CancelFollowRequest)

	group.Get("/followers/:userId", h.GetFollowers)
	group.Get("/following/:userId", h.GetFollowing)
	group.Get("/status/:userId", auth.ProtectRoute, h.GetFollowStatus)

	group.Delete("/:followedId", auth.ProtectRoute, h.Unfollow)
}
