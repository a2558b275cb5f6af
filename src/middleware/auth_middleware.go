package middleware

import (
	"errors"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/models"
)

// TokenCookie is the name of the httpOnly session cookie
const TokenCookie = "token"

var bearerPrefix = regexp.MustCompile(`(?i)^bearer\s+`)

// Auth verifies session tokens and loads the user they reference
type Auth struct {
	db     *gorm.DB
	tokens *lib.TokenManager
}

func NewAuth(db *gorm.DB, tokens *lib.TokenManager) *Auth {
	return &Auth{db: db, tokens: tokens}
}

// TokenFromRequest reads the token from the cookie, falling back to the Authorization header
func TokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(TokenCookie); token != "" {
		return token
	}
	header := c.Get(fiber.HeaderAuthorization)
	if !bearerPrefix.MatchString(header) {
		return ""
	}
	return bearerPrefix.ReplaceAllString(header, "")
}

// ClearTokenCookie expires the session cookie on the client
func ClearTokenCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure,
	})
}

// ProtectRoute checks for a valid token, authenticates the user, and attaches it to the request context
func (a *Auth) ProtectRoute(c *fiber.Ctx) error {
	token := TokenFromRequest(c)
	if token == "" {
		return lib.Unauthorized("Not authorized")
	}

	claims, err := a.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, lib.ErrTokenExpired) {
			ClearTokenCookie(c, c.Protocol() == "https")
			return lib.Unauthorized("Token expired")
		}
		return lib.Unauthorized("Invalid token")
	}

	var user models.User
	err = a.db.WithContext(c.UserContext()).
		Where("id = ? AND deleted = ?", claims.UserID, false).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lib.Unauthorized("User not found")
		}
		return lib.ServerError("authenticate", err)
	}

	c.Locals("user", user)
	return c.Next()
}

// GuestOnly lets through only requests that do not carry a valid token
func (a *Auth) GuestOnly(c *fiber.Ctx) error {
	token := TokenFromRequest(c)
	if token == "" {
		return c.Next()
	}
	if _, err := a.tokens.Verify(token); err != nil {
		return c.Next()
	}
	return lib.Conflict("Already authenticated")
}
