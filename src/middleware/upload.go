package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/storage"
)

const (
	MaxProfilePicBytes = 5 * 1024 * 1024
	MaxPostImageBytes  = 8 * 1024 * 1024
)

// allowedImageTypes are the raster formats accepted for upload. Uploads are
// served from the API origin, so scriptable formats such as SVG are refused.
var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ReadImage validates the single image in form field and returns it ready
// for an ImageStore. ok is false when the request carries no such file.
func ReadImage(c *fiber.Ctx, field string, maxBytes int64) (img storage.Image, ok bool, err error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return storage.Image{}, false, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return storage.Image{}, false, lib.BadRequest("Invalid upload")
	}

	files := form.File[field]
	switch {
	case len(files) == 0:
		return storage.Image{}, false, nil
	case len(files) > 1:
		return storage.Image{}, false, lib.BadRequest("Only one image per request")
	}
	header := files[0]

	if header.Size > maxBytes {
		return storage.Image{}, false, lib.BadRequest(fmt.Sprintf("Image must be at most %d MB", maxBytes/(1024*1024)))
	}

	declared := header.Header.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(declared, "image/") {
		return storage.Image{}, false, lib.BadRequest("Only image files are allowed")
	}

	data, err := readAll(header, maxBytes)
	if err != nil {
		return storage.Image{}, false, lib.BadRequest("Invalid upload")
	}

	sniffed := http.DetectContentType(data)
	if !allowedImageTypes[sniffed] {
		return storage.Image{}, false, lib.BadRequest("Only PNG, JPEG, GIF or WebP images are allowed")
	}

	return storage.Image{
		Filename:    header.Filename,
		ContentType: sniffed,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, true, nil
}

func readAll(header *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, errors.New("file too large")
	}
	return data, nil
}
