package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/middleware"
	"github.com/odling/odling-api/src/models"
	"github.com/odling/odling-api/src/storage"
)

type PictureController struct {
	db     *gorm.DB
	images storage.ImageStore
}

func NewPictureController(db *gorm.DB, images storage.ImageStore) *PictureController {
	return &PictureController{db: db, images: images}
}

// UploadProfilePicture stores the uploaded picture and replaces the caller's current one
func (h *PictureController) UploadProfilePicture(c *fiber.Ctx) error {
	img, ok, err := middleware.ReadImage(c, "picture", middleware.MaxProfilePicBytes)
	if err != nil {
		return err
	}
	if !ok {
		return lib.BadRequest("No picture uploaded")
	}

	user := lib.CurrentUser(c)
	ctx := c.UserContext()

	ref, err := h.images.Save(ctx, storage.FolderProfilePics, img)
	if err != nil {
		return lib.ServerError("uploadProfilePicture", err)
	}

	previous := user.ProfilePic
	if err := h.setPicture(c, &user, &ref); err != nil {
		discardImage(ctx, h.images, &ref)
		return err
	}
	discardImage(ctx, h.images, previous)

	return c.JSON(fiber.Map{"user": user.Account()})
}

// DeleteProfilePicture clears the caller's picture and removes the stored asset
func (h *PictureController) DeleteProfilePicture(c *fiber.Ctx) error {
	user := lib.CurrentUser(c)
	previous := user.ProfilePic

	if err := h.setPicture(c, &user, nil); err != nil {
		return err
	}
	discardImage(c.UserContext(), h.images, previous)

	return c.JSON(fiber.Map{"user": user.Account()})
}

func (h *PictureController) setPicture(c *fiber.Ctx, user *models.User, ref *string) error {
	err := h.db.WithContext(c.UserContext()).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("profile_pic", ref).Error
	if err != nil {
		return lib.ServerError("setProfilePicture", err)
	}
	user.ProfilePic = ref
	return nil
}
