package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/middleware"
	"github.com/odling/odling-api/src/models"
	"github.com/odling/odling-api/src/storage"
)

const (
	maxPostContentLength = 5000
	maxPostTitleLength   = 200
	defaultPostPageSize  = 20
	maxPostPageSize      = 100
)

type PostController struct {
	db     *gorm.DB
	images storage.ImageStore
}

func NewPostController(db *gorm.DB, images storage.ImageStore) *PostController {
	return &PostController{db: db, images: images}
}

// postForm holds the post fields present in a JSON or multipart body
type postForm struct {
	Title       *string
	Content     *string
	RemoveImage bool
}

func readPostForm(c *fiber.Ctx) (postForm, error) {
	var form postForm
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		mf, err := c.MultipartForm()
		if err != nil {
			return form, lib.BadRequest("Invalid request body")
		}
		if v, ok := mf.Value["title"]; ok && len(v) > 0 {
			form.Title = &v[0]
		}
		if v, ok := mf.Value["content"]; ok && len(v) > 0 {
			form.Content = &v[0]
		}
		if v, ok := mf.Value["removeImage"]; ok && len(v) > 0 {
			form.RemoveImage, _ = strconv.ParseBool(v[0])
		}
		return form, nil
	}

	if len(c.Body()) == 0 {
		return form, nil
	}
	var req struct {
		Title       *string `json:"title"`
		Content     *string `json:"content"`
		RemoveImage bool    `json:"removeImage"`
	}
	if err := c.BodyParser(&req); err != nil {
		return form, lib.BadRequest("Invalid request body")
	}
	return postForm{Title: req.Title, Content: req.Content, RemoveImage: req.RemoveImage}, nil
}

func validateContent(content string, maxLength int) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", lib.BadRequest("Content is required")
	}
	if len([]rune(content)) > maxLength {
		return "", lib.BadRequest("Content must be at most " + strconv.Itoa(maxLength) + " characters")
	}
	return content, nil
}

func validateTitle(title *string) (*string, error) {
	title = optionalString(title)
	if title != nil && len([]rune(*title)) > maxPostTitleLength {
		return nil, lib.BadRequest("Title must be at most 200 characters")
	}
	return title, nil
}

// postCounts loads comment and like totals for the given posts
func postCounts(db *gorm.DB, ids []uint) (map[uint]models.Counts, error) {
	counts := make(map[uint]models.Counts, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	type row struct {
		PostID uint
		Total  int64
	}
	var comments, likes []row
	err := db.Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&comments).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.Like{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&likes).Error
	if err != nil {
		return nil, err
	}

	for _, r := range comments {
		c := counts[r.PostID]
		c.Comments = r.Total
		counts[r.PostID] = c
	}
	for _, r := range likes {
		c := counts[r.PostID]
		c.Likes = r.Total
		counts[r.PostID] = c
	}
	return counts, nil
}

func (h *PostController) toDtos(db *gorm.DB, posts []models.Post) ([]models.PostDto, error) {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	counts, err := postCounts(db, ids)
	if err != nil {
		return nil, err
	}

	dtos := make([]models.PostDto, 0, len(posts))
	for _, p := range posts {
		dtos = append(dtos, p.ToDto(counts[p.ID]))
	}
	return dtos, nil
}

func (h *PostController) findPost(db *gorm.DB, c *fiber.Ctx) (models.Post, error) {
	var post models.Post
	id, ok := lib.ParamID(c, "id")
	if !ok {
		return post, lib.BadRequest("Invalid post id")
	}
	if err := db.Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return post, lib.NotFound("Post not found")
		}
		return post, lib.ServerError("findPost", err)
	}
	return post, nil
}

// CreatePost stores a new post for the authenticated user, with an optional image
func (h *PostController) CreatePost(c *fiber.Ctx) error {
	form, err := readPostForm(c)
	if err != nil {
		return err
	}
	if form.Content == nil {
		return lib.BadRequest("Content is required")
	}
	content, err := validateContent(*form.Content, maxPostContentLength)
	if err != nil {
		return err
	}
	title, err := validateTitle(form.Title)
	if err != nil {
		return err
	}

	img, hasImage, err := middleware.ReadImage(c, "image", middleware.MaxPostImageBytes)
	if err != nil {
		return err
	}

	user := lib.CurrentUser(c)
	ctx := c.UserContext()
	db := h.db.WithContext(ctx)

	post := models.Post{
		AuthorID: user.ID,
		Title:    title,
		Content:  content,
	}
	if hasImage {
		ref, err := h.images.Save(ctx, storage.FolderPosts, img)
		if err != nil {
			return lib.ServerError("createPost", err)
		}
		post.Image = &ref
	}

	if err := db.Create(&post).Error; err != nil {
		discardImage(ctx, h.images, post.Image)
		return lib.ServerError("createPost", err)
	}
	post.Author = user

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post": post.ToDto(models.Counts{}),
	})
}

// ListPosts returns posts newest first, optionally filtered by author
func (h *PostController) ListPosts(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())
	query := db.Model(&models.Post{})

	if raw := c.Query("authorId"); raw != "" {
		authorID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return lib.BadRequest("Invalid authorId")
		}
		query = query.Where("author_id = ?", uint(authorID))
	}

	return h.page(c, db, query.Session(&gorm.Session{}), "listPosts")
}

// GetFeedPosts returns posts by the authenticated user and the users they follow
func (h *PostController) GetFeedPosts(c *fiber.Ctx) error {
	user := lib.CurrentUser(c)
	db := h.db.WithContext(c.UserContext())

	followed := db.Model(&models.Follow{}).Select("followed_id").Where("follower_id = ?", user.ID)
	query := db.Model(&models.Post{}).
		Where("author_id = ? OR author_id IN (?)", user.ID, followed).
		Session(&gorm.Session{})

	return h.page(c, db, query, "getFeedPosts")
}

func (h *PostController) page(c *fiber.Ctx, db, query *gorm.DB, op string) error {
	page := lib.Clamp(lib.QueryInt(c, "page", 1), 1, maxPage)
	limit := lib.Clamp(lib.QueryInt(c, "limit", defaultPostPageSize), 1, maxPostPageSize)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return lib.ServerError(op, err)
	}

	var posts []models.Post
	err := query.Preload("Author").
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return lib.ServerError(op, err)
	}

	dtos, err := h.toDtos(db, posts)
	if err != nil {
		return lib.ServerError(op, err)
	}

	return c.JSON(fiber.Map{
		"posts": dtos,
		"meta":  newPageMeta(page, limit, total),
	})
}

// GetPostByID returns a post with its comments, oldest first
func (h *PostController) GetPostByID(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())
	post, err := h.findPost(db, c)
	if err != nil {
		return err
	}

	var comments []models.Comment
	err = db.Preload("Author").
		Where("post_id = ?", post.ID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return lib.ServerError("getPostById", err)
	}

	counts, err := postCounts(db, []uint{post.ID})
	if err != nil {
		return lib.ServerError("getPostById", err)
	}

	dto := post.ToDto(counts[post.ID])
	dto.Comments = make([]models.CommentDto, 0, len(comments))
	for _, comment := range comments {
		dto.Comments = append(dto.Comments, comment.ToDto())
	}

	return c.JSON(fiber.Map{"post": dto})
}

// UpdatePost edits title, content or image of a post owned by the caller
func (h *PostController) UpdatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	db := h.db.WithContext(ctx)
	post, err := h.findPost(db, c)
	if err != nil {
		return err
	}
	if post.AuthorID != lib.CurrentUser(c).ID {
		return lib.Forbidden("You can only edit your own posts")
	}

	form, err := readPostForm(c)
	if err != nil {
		return err
	}
	img, hasImage, err := middleware.ReadImage(c, "image", middleware.MaxPostImageBytes)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if form.Content != nil {
		content, err := validateContent(*form.Content, maxPostContentLength)
		if err != nil {
			return err
		}
		updates["content"] = content
	}
	if form.Title != nil {
		title, err := validateTitle(form.Title)
		if err != nil {
			return err
		}
		updates["title"] = title
	}

	previous := post.Image
	var stored *string
	switch {
	case hasImage:
		ref, err := h.images.Save(ctx, storage.FolderPosts, img)
		if err != nil {
			return lib.ServerError("updatePost", err)
		}
		stored = &ref
		updates["image"] = stored
	case form.RemoveImage:
		updates["image"] = nil
	}

	if len(updates) == 0 {
		return lib.BadRequest("Nothing to update")
	}

	if err := db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
		discardImage(ctx, h.images, stored)
		return lib.ServerError("updatePost", err)
	}
	if _, changed := updates["image"]; changed {
		discardImage(ctx, h.images, previous)
	}

	updated, err := h.findPost(db, c)
	if err != nil {
		return err
	}
	counts, err := postCounts(db, []uint{updated.ID})
	if err != nil {
		return lib.ServerError("updatePost", err)
	}

	return c.JSON(fiber.Map{"post": updated.ToDto(counts[updated.ID])})
}

// DeletePost removes a post owned by the caller together with its comments,
// likes and the notifications that point at them
func (h *PostController) DeletePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	db := h.db.WithContext(ctx)
	post, err := h.findPost(db, c)
	if err != nil {
		return err
	}
	if post.AuthorID != lib.CurrentUser(c).ID {
		return lib.Forbidden("You can only delete your own posts")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ? AND parent_id IS NOT NULL", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
	if err != nil {
		return lib.ServerError("deletePost", err)
	}

	discardImage(ctx, h.images, post.Image)

	return c.JSON(lib.MessageResponse("Post deleted successfully"))
}
