package utils

import (
	"errors"

	"paycore/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ClaimsKey is the fiber Locals key the auth middleware stores claims under.
const ClaimsKey = "claims"

// GetClaims extracts the customer claims from the Fiber context.
// It returns an error if the claims are missing or of an invalid type.
func GetClaims(c *fiber.Ctx) (*models.CustomerClaims, error) {
	v := c.Locals(ClaimsKey)
	if v == nil {
		return nil, errors.New("claims not found in context")
	}

	claims, ok := v.(*models.CustomerClaims)
	if !ok || claims == nil {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
