package lib

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// BadRequest builds a 400 response error
func BadRequest(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

// Unauthorized builds a 401 response error
func Unauthorized(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusUnauthorized, message)
}

// Forbidden builds a 403 response error
func Forbidden(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusForbidden, message)
}

// NotFound builds a 404 response error
func NotFound(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusNotFound, message)
}

// Conflict builds a 409 response error
func Conflict(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusConflict, message)
}

// ServerError logs the underlying error under the given operation name and
// returns the generic 500 the client sees
func ServerError(op string, err error) *fiber.Error {
	log.Printf("%s error: %v", op, err)
	return fiber.NewError(fiber.StatusInternalServerError, "Server error")
}

// ErrorHandler renders every error returned by a handler as {"error": message}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		log.Printf("unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(ErrorResponse(message))
}
