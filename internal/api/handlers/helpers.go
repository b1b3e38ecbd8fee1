package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetUserID reads the user id the auth middleware stored on the request.
// It returns 0 when the request never went through the middleware.
func GetUserID(c *fiber.Ctx) int64 {
	raw, ok := c.Locals("user_id").(string)
	if !ok {
		return 0
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return userID
}
