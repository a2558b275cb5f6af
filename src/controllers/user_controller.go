package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/models"
)

const (
	defaultUserPageSize = 20
	minUserPageSize     = 5
	maxUserPageSize     = 60
)

type UserController struct {
	db *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// SearchUsers lists active users whose username, name or email contains q
func (h *UserController) SearchUsers(c *fiber.Ctx) error {
	page := lib.Clamp(lib.QueryInt(c, "page", 1), 1, maxPage)
	limit := lib.Clamp(lib.QueryInt(c, "limit", defaultUserPageSize), minUserPageSize, maxUserPageSize)

	query := h.db.WithContext(c.UserContext()).Model(&models.User{}).Where("deleted = ?", false)
	if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern, pattern)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return lib.ServerError("searchUsers", err)
	}

	var users []models.User
	err := query.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return lib.ServerError("searchUsers", err)
	}

	results := make([]models.UserDto, 0, len(users))
	for _, u := range users {
		results = append(results, u.Summary())
	}

	return c.JSON(fiber.Map{
		"users": results,
		"meta":  newPageMeta(page, limit, total),
	})
}

// GetUserProfile returns a public profile with follower, following and post counts
func (h *UserController) GetUserProfile(c *fiber.Ctx) error {
	id, ok := lib.ParamID(c, "id")
	if !ok {
		return lib.BadRequest("Invalid user id")
	}

	db := h.db.WithContext(c.UserContext())

	var user models.User
	if err := db.Where("id = ? AND deleted = ?", id, false).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lib.NotFound("User not found")
		}
		return lib.ServerError("getUserProfile", err)
	}

	var counts struct {
		Followers int64 `json:"followers"`
		Following int64 `json:"following"`
		Posts     int64 `json:"posts"`
	}
	if err := db.Model(&models.Follow{}).Where("followed_id = ?", id).Count(&counts.Followers).Error; err != nil {
		return lib.ServerError("getUserProfile", err)
	}
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", id).Count(&counts.Following).Error; err != nil {
		return lib.ServerError("getUserProfile", err)
	}
	if err := db.Model(&models.Post{}).Where("author_id = ?", id).Count(&counts.Posts).Error; err != nil {
		return lib.ServerError("getUserProfile", err)
	}

	return c.JSON(fiber.Map{
		"user":   user.Profile(),
		"counts": counts,
	})
}
