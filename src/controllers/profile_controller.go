package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/lib"
)

type ProfileController struct {
	db *gorm.DB
}

func NewProfileController(db *gorm.DB) *ProfileController {
	return &ProfileController{db: db}
}

// UpdateProfile applies the provided profile fields to the authenticated user
func (h *ProfileController) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Name        *string `json:"name"`
		Bio         *string `json:"bio"`
		Username    *string `json:"username"`
		ProfilePic  *string `json:"profilePic"`
		Email       *string `json:"email"`
		Password    *string `json:"password"`
		DateOfBirth *string `json:"dateOfBirth"`
		Gender      *string `json:"gender"`
	}
	if err := c.BodyParser(&req); err != nil {
		return lib.BadRequest("Invalid request body")
	}

	user := lib.CurrentUser(c)
	updates := map[string]interface{}{}
	var username, email string

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return lib.BadRequest("Name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Username != nil {
		username = strings.TrimSpace(*req.Username)
		if username == "" {
			return lib.BadRequest("Username cannot be empty")
		}
		if len([]rune(username)) > maxUsernameLength {
			return lib.BadRequest("Username must be at most 30 characters")
		}
		updates["username"] = username
	}
	if req.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			return lib.BadRequest("Email cannot be empty")
		}
		updates["email"] = email
	}
	if req.Bio != nil {
		updates["bio"] = optionalString(req.Bio)
	}
	if req.ProfilePic != nil {
		updates["profile_pic"] = optionalString(req.ProfilePic)
	}
	if req.Gender != nil {
		updates["gender"] = optionalString(req.Gender)
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate(*req.DateOfBirth)
		if err != nil {
			return lib.BadRequest("Invalid dateOfBirth")
		}
		updates["date_of_birth"] = dob
	}
	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < minPasswordLength {
			return lib.BadRequest("Password must be at least 6 characters")
		}
		hashed, err := hashPassword(*req.Password)
		if err != nil {
			return lib.ServerError("updateProfile", err)
		}
		updates["password"] = hashed
	}

	if len(updates) == 0 {
		return lib.BadRequest("No profile fields provided")
	}

	db := h.db.WithContext(c.UserContext())
	if err := checkUnique(db, user.ID, username, email); err != nil {
		return err
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return lib.Conflict("Username or email already in use")
		}
		return lib.ServerError("updateProfile", err)
	}
	if err := db.First(&user, user.ID).Error; err != nil {
		return lib.ServerError("updateProfile", err)
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user.Account(),
	})
}
