package controllers

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/middleware"
	"github.com/odling/odling-api/src/models"
	"github.com/odling/odling-api/src/storage"
)

const (
	bcryptCost        = 10
	minPasswordLength = 6
	maxUsernameLength = 30

	// maxPage keeps (page-1)*limit well inside int range
	maxPage = 1 << 20
)

// PageMeta describes a paginated listing
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func newPageMeta(page, limit int, total int64) PageMeta {
	return PageMeta{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// parseDate accepts a full timestamp or a plain yyyy-mm-dd date
func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", value)
}

func optionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// checkUnique reports a 409 when another user already holds the username or email
func checkUnique(db *gorm.DB, userID uint, username, email string) error {
	checks := []struct {
		column, value, label string
	}{
		{"username", username, "Username"},
		{"email", email, "Email"},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		var count int64
		err := db.Model(&models.User{}).
			Where(check.column+" = ? AND id <> ?", check.value, userID).
			Count(&count).Error
		if err != nil {
			return lib.ServerError("checkUnique", err)
		}
		if count > 0 {
			return lib.Conflict(check.label + " already in use")
		}
	}
	return nil
}

func setTokenCookie(c *fiber.Ctx, token string, maxAge time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure,
	})
}

// discardImage removes a stored asset, logging instead of failing
func discardImage(ctx context.Context, images storage.ImageStore, ref *string) {
	if ref == nil || *ref == "" {
		return
	}
	if err := images.Delete(ctx, *ref); err != nil {
		log.Printf("could not delete image %s: %v", *ref, err)
	}
}
