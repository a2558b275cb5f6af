package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/models"
	"github.com/odling/odling-api/src/services"
)

const maxCommentLength = 2000

type CommentController struct {
	db       *gorm.DB
	notifier *services.Notifier
}

func NewCommentController(db *gorm.DB, notifier *services.Notifier) *CommentController {
	return &CommentController{db: db, notifier: notifier}
}

type commentRequest struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parentId"`
}

// CreateComment adds a comment, or a reply when parentId is set, to a post
func (h *CommentController) CreateComment(c *fiber.Ctx) error {
	postID, ok := lib.ParamID(c, "id")
	if !ok {
		return lib.BadRequest("Invalid post id")
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return lib.BadRequest("Invalid request body")
	}
	if req.ParentID != nil && *req.ParentID == 0 {
		req.ParentID = nil
	}

	return h.create(c, postID, req.ParentID, req.Content)
}

// ReplyToComment adds a reply to the comment in the path
func (h *CommentController) ReplyToComment(c *fiber.Ctx) error {
	parentID, ok := lib.ParamID(c, "id")
	if !ok {
		return lib.BadRequest("Invalid comment id")
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return lib.BadRequest("Invalid request body")
	}

	var parent models.Comment
	if err := h.db.WithContext(c.UserContext()).First(&parent, parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lib.NotFound("Comment not found")
		}
		return lib.ServerError("replyToComment", err)
	}

	return h.create(c, parent.PostID, &parent.ID, req.Content)
}

func (h *CommentController) create(c *fiber.Ctx, postID uint, parentID *uint, rawContent string) error {
	content, err := validateContent(rawContent, maxCommentLength)
	if err != nil {
		return err
	}

	user := lib.CurrentUser(c)
	ctx := c.UserContext()
	db := h.db.WithContext(ctx)

	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lib.NotFound("Post not found")
		}
		return lib.ServerError("createComment", err)
	}

	// target is the comment being answered; replies to replies are stored
	// under the top-level ancestor so threads stay one level deep
	var target *models.Comment
	if parentID != nil {
		target = &models.Comment{}
		if err := db.First(target, *parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lib.NotFound("Parent comment not found")
			}
			return lib.ServerError("createComment", err)
		}
		if target.PostID != post.ID {
			return lib.BadRequest("Parent comment belongs to another post")
		}
		if target.ParentID != nil {
			parentID = target.ParentID
		}
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: user.ID,
		ParentID: parentID,
		Content:  content,
	}
	if err := db.Create(&comment).Error; err != nil {
		return lib.ServerError("createComment", err)
	}
	comment.Author = user

	if target != nil {
		h.notifier.Notify(ctx, target.AuthorID, models.CommentReplyPayload{
			FromUserID: user.ID,
			PostID:     post.ID,
			CommentID:  comment.ID,
			ParentID:   *parentID,
			Excerpt:    content,
		})
	}
	if target == nil || target.AuthorID != post.AuthorID {
		h.notifier.Notify(ctx, post.AuthorID, models.CommentPayload{
			FromUserID: user.ID,
			PostID:     post.ID,
			CommentID:  comment.ID,
			Excerpt:    content,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment.ToDto()})
}

func (h *CommentController) findComment(db *gorm.DB, c *fiber.Ctx) (models.Comment, error) {
	var comment models.Comment
	id, ok := lib.ParamID(c, "id")
	if !ok {
		return comment, lib.BadRequest("Invalid comment id")
	}
	err := db.Preload("Author").
		Preload("Replies", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Replies.Author").
		First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return comment, lib.NotFound("Comment not found")
		}
		return comment, lib.ServerError("findComment", err)
	}
	return comment, nil
}

// GetComment returns a comment with its replies
func (h *CommentController) GetComment(c *fiber.Ctx) error {
	comment, err := h.findComment(h.db.WithContext(c.UserContext()), c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"comment": comment.ToDto()})
}

// UpdateComment replaces the content of a comment owned by the caller
func (h *CommentController) UpdateComment(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())
	comment, err := h.findComment(db, c)
	if err != nil {
		return err
	}
	if comment.AuthorID != lib.CurrentUser(c).ID {
		return lib.Forbidden("You can only edit your own comments")
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return lib.BadRequest("Invalid request body")
	}
	content, err := validateContent(req.Content, maxCommentLength)
	if err != nil {
		return err
	}

	if err := db.Model(&models.Comment{}).Where("id = ?", comment.ID).Update("content", content).Error; err != nil {
		return lib.ServerError("updateComment", err)
	}

	updated, err := h.findComment(db, c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"comment": updated.ToDto()})
}

// DeleteComment removes a comment owned by the caller, its replies and their notifications
func (h *CommentController) DeleteComment(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())
	comment, err := h.findComment(db, c)
	if err != nil {
		return err
	}
	if comment.AuthorID != lib.CurrentUser(c).ID {
		return lib.Forbidden("You can only delete your own comments")
	}

	ids := []uint{comment.ID}
	for _, reply := range comment.Replies {
		ids = append(ids, reply.ID)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("comment_id IN ? OR parent_comment_id IN ?", ids, ids).
			Delete(&models.Notification{}).Error
		if err != nil {
			return err
		}
		if err := tx.Where("parent_id = ?", comment.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, comment.ID).Error
	})
	if err != nil {
		return lib.ServerError("deleteComment", err)
	}

	return c.JSON(lib.MessageResponse("Comment deleted successfully"))
}
