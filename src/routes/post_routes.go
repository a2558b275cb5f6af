package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/odling/odling-api/src/controllers"
	"github.com/odling/odling-api/src/middleware"
)

// PostRoutes sets up post CRUD, the feed, likes and comments on a post
func PostRoutes(app fiber.Router, posts *controllers.PostController, likes *controllers.LikeController, comments *controllers.CommentController, auth *middleware.Auth) {
	group := app.Group("/posts")

	group.Get("/", posts.ListPosts)
	group.Post("/", auth.ProtectRoute, posts.CreatePost)
	group.Get("/feed", auth.ProtectRoute, posts.GetFeedPosts)
	group.Get("/:id", posts.GetPostByID)
	group.Put("/:id", auth.ProtectRoute, posts.UpdatePost)
	group.Delete("/:id", auth.ProtectRoute, posts.DeletePost)

	group.Get("/:id/liked", auth.ProtectRoute, likes.IsLiked)
	group.Post("/:id/like", auth.ProtectRoute, likes.LikePost)
	group.Delete("/:id/like", auth.ProtectRoute, likes.UnlikePost)

	group.Post("/:id/comments", auth.ProtectRoute, comments.CreateComment)
}

// CommentRoutes sets up reading, replying to, editing and deleting comments
func CommentRoutes(app fiber.Router, h *controllers.CommentController, auth *middleware.Auth) {
	group := app.Group("/comments")

	group.Get("/:id", h.GetComment)
	group.Post("/:id/replies", auth.ProtectRoute, h.ReplyToComment)
	group.Put("/:id", auth.ProtectRoute, h.UpdateComment)
	group.Delete("/:id", auth.ProtectRoute, h.DeleteComment)
}
