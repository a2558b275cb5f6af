package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/models"
	"github.com/odling/odling-api/src/services"
)

type LikeController struct {
	db       *gorm.DB
	notifier *services.Notifier
}

func NewLikeController(db *gorm.DB, notifier *services.Notifier) *LikeController {
	return &LikeController{db: db, notifier: notifier}
}

func (h *LikeController) findPost(db *gorm.DB, c *fiber.Ctx) (models.Post, error) {
	var post models.Post
	id, ok := lib.ParamID(c, "id")
	if !ok {
		return post, lib.BadRequest("Invalid post id")
	}
	if err := db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return post, lib.NotFound("Post not found")
		}
		return post, lib.ServerError("findPost", err)
	}
	return post, nil
}

// IsLiked reports whether the caller likes the post
func (h *LikeController) IsLiked(c *fiber.Ctx) error {
	id, ok := lib.ParamID(c, "id")
	if !ok {
		return lib.BadRequest("Invalid post id")
	}

	var count int64
	err := h.db.WithContext(c.UserContext()).Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", lib.CurrentUser(c).ID, id).
		Count(&count).Error
	if err != nil {
		return lib.ServerError("isLiked", err)
	}
	return c.JSON(fiber.Map{"liked": count > 0})
}

// LikePost records a like from the caller and notifies the post author
func (h *LikeController) LikePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	db := h.db.WithContext(ctx)
	post, err := h.findPost(db, c)
	if err != nil {
		return err
	}
	user := lib.CurrentUser(c)

	var existing int64
	if err := db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", user.ID, post.ID).Count(&existing).Error; err != nil {
		return lib.ServerError("likePost", err)
	}
	if existing > 0 {
		return lib.Conflict("Already liked")
	}

	like := models.Like{UserID: user.ID, PostID: post.ID}
	if err := db.Create(&like).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return lib.Conflict("Already liked")
		}
		return lib.ServerError("likePost", err)
	}

	h.notifier.Notify(ctx, post.AuthorID, models.LikePayload{
		FromUserID: user.ID,
		PostID:     post.ID,
		LikeID:     like.ID,
	})

	counts, err := postCounts(db, []uint{post.ID})
	if err != nil {
		return lib.ServerError("likePost", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"like":   like,
		"counts": counts[post.ID],
	})
}

// UnlikePost removes the caller's like and its notification
func (h *LikeController) UnlikePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	db := h.db.WithContext(ctx)
	post, err := h.findPost(db, c)
	if err != nil {
		return err
	}

	var like models.Like
	if err := db.Where("user_id = ? AND post_id = ?", lib.CurrentUser(c).ID, post.ID).First(&like).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lib.NotFound("Like not found")
		}
		return lib.ServerError("unlikePost", err)
	}

	if err := db.Delete(&like).Error; err != nil {
		return lib.ServerError("unlikePost", err)
	}
	h.notifier.RemoveForLike(ctx, like.ID)

	counts, err := postCounts(db, []uint{post.ID})
	if err != nil {
		return lib.ServerError("unlikePost", err)
	}

	return c.JSON(fiber.Map{
		"message": "Post unliked",
		"counts":  counts[post.ID],
	})
}
