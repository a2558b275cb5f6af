package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/middleware"
	"github.com/odling/odling-api/src/models"
)

type AuthController struct {
	db            *gorm.DB
	tokens        *lib.TokenManager
	secureCookies bool
}

func NewAuthController(db *gorm.DB, tokens *lib.TokenManager, secureCookies bool) *AuthController {
	return &AuthController{db: db, tokens: tokens, secureCookies: secureCookies}
}

// Signup validates the registration form, hashes the password and creates the user
func (h *AuthController) Signup(c *fiber.Ctx) error {
	var req struct {
		Username    string  `json:"username"`
		Email       string  `json:"email"`
		Password    string  `json:"password"`
		Name        string  `json:"name"`
		Bio         *string `json:"bio"`
		DateOfBirth string  `json:"dateOfBirth"`
		Gender      *string `json:"gender"`
	}
	if err := c.BodyParser(&req); err != nil {
		return lib.BadRequest("Invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if req.Username == "" || req.Email == "" || req.Password == "" || req.Name == "" {
		return lib.BadRequest("All fields are required")
	}
	if len(req.Password) < minPasswordLength {
		return lib.BadRequest("Password must be at least 6 characters")
	}
	if len([]rune(req.Username)) > maxUsernameLength {
		return lib.BadRequest("Username must be at most 30 characters")
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return lib.BadRequest("Invalid dateOfBirth")
	}

	db := h.db.WithContext(c.UserContext())
	if err := checkUnique(db, 0, req.Username, req.Email); err != nil {
		return err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return lib.ServerError("signup", err)
	}

	user := models.User{
		Username:    req.Username,
		Email:       req.Email,
		Name:        req.Name,
		Password:    hashed,
		Bio:         optionalString(req.Bio),
		DateOfBirth: dob,
		Gender:      optionalString(req.Gender),
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return lib.Conflict("Username or email already in use")
		}
		return lib.ServerError("signup", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user.Account(),
	})
}

// Login authenticates by email or username and sets the session cookie
func (h *AuthController) Login(c *fiber.Ctx) error {
	var req struct {
		EmailOrUsername string `json:"emailOrUsername"`
		Password        string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return lib.BadRequest("Invalid request body")
	}

	identifier := strings.TrimSpace(req.EmailOrUsername)
	if identifier == "" || req.Password == "" {
		return lib.BadRequest("Email or username and password are required")
	}

	var user models.User
	err := h.db.WithContext(c.UserContext()).
		Where("(email = ? OR username = ?) AND deleted = ?", strings.ToLower(identifier), identifier, false).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lib.Unauthorized("Invalid credentials")
		}
		return lib.ServerError("login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return lib.Unauthorized("Invalid credentials")
	}

	token, err := h.issueToken(c, user.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Logged in successfully",
		"token":   token,
	})
}

// Logout clears the session cookie
func (h *AuthController) Logout(c *fiber.Ctx) error {
	middleware.ClearTokenCookie(c, h.secureCookies)
	return c.JSON(lib.MessageResponse("Logged out successfully"))
}

// GetCurrentUser returns the authenticated user's account
func (h *AuthController) GetCurrentUser(c *fiber.Ctx) error {
	user := lib.CurrentUser(c)
	return c.JSON(fiber.Map{"user": user.Account()})
}

// Guest creates a throwaway account and logs it in
func (h *AuthController) Guest(c *fiber.Ctx) error {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	hashed, err := hashPassword(uuid.NewString())
	if err != nil {
		return lib.ServerError("guest", err)
	}

	user := models.User{
		Username: "guest_" + suffix,
		Email:    "guest+" + suffix + "@example.local",
		Name:     "Guest User",
		Password: hashed,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		return lib.ServerError("guest", err)
	}

	token, err := h.issueToken(c, user.ID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user.Account(),
	})
}

func (h *AuthController) issueToken(c *fiber.Ctx, userID uint) (string, error) {
	token, err := h.tokens.Generate(userID)
	if err != nil {
		return "", lib.ServerError("generateToken", err)
	}
	setTokenCookie(c, token, h.tokens.Expiry(), h.secureCookies)
	return token, nil
}
