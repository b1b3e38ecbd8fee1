package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialflow/internal/service"
)

type EngagementHandler struct {
	s service.EngagementService
}

func NewEngagementHandler(service service.EngagementService) *EngagementHandler {
	return &EngagementHandler{s: service}
}

// SyncEngagement pulls fresh numbers from the platform for one account and
// stores a snapshot.
func (h *EngagementHandler) SyncEngagement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	engagement, err := h.s.SyncAccount(c.Context(), userID, int64(accountID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(engagement)
}

func (h *EngagementHandler) EngagementHistory(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)
	limit := c.QueryInt("limit", 30)

	snapshots, err := h.s.History(c.Context(), userID, int64(accountID), limit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list engagement history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(snapshots)
}
