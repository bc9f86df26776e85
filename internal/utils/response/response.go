package response

import (
	domainerr "paycore/internal/errors"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *fiber.Ctx) error {
	return Error(c, fiber.StatusForbidden, "Insufficient permissions")
}

func ValidationError(c *fiber.Ctx, errs interface{}) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "validation failed",
		"errors": errs,
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domainerr.Kind) int {
	switch kind {
	case domainerr.KindValidation:
		return fiber.StatusBadRequest
	case domainerr.KindBusinessRule:
		return fiber.StatusUnprocessableEntity
	case domainerr.KindNotFound:
		return fiber.StatusNotFound
	case domainerr.KindForbidden:
		return fiber.StatusForbidden
	case domainerr.KindConflict:
		return fiber.StatusConflict
	case domainerr.KindGateway:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// FromError writes err with the status of its kind. Internal causes are not
// exposed to the client.
func FromError(c *fiber.Ctx, err error) error {
	de := domainerr.Normalize(err)
	message := de.Message
	if de.Kind == domainerr.KindInternal {
		message = "internal error"
	}
	return c.Status(StatusFor(de.Kind)).JSON(fiber.Map{
		"error":     message,
		"code":      de.Code,
		"retryable": de.Retryable,
	})
}
