package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialflow/internal/service"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

type CompetitorHandler struct {
	s service.AnalysisService
}

func NewCompetitorHandler(service service.AnalysisService) *CompetitorHandler {
	return &CompetitorHandler{s: service}
}

// Analyze runs competitor collection and analysis synchronously. Collection
// is rate limited internally, so a full request can take a while; the
// client gets the stored result back once everything is done.
func (h *CompetitorHandler) Analyze(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.CompetitorAnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Unable to parse json",
		})
	}

	result, err := h.s.AnalyzeCompetitors(c.Context(), userID, &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"result":  result,
	})
}

func (h *CompetitorHandler) ListResults(c *fiber.Ctx) error {
	userID := GetUserID(c)
	analysisID := c.Query("id")

	if analysisID != "" {
		result, err := h.s.GetAnalysis(c.Context(), userID, analysisID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to find analysis",
			})
		}

		return c.Status(fiber.StatusOK).JSON(result)
	}

	limit := c.QueryInt("limit", 20)
	results, err := h.s.ListAnalyses(c.Context(), userID, limit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list analyses",
		})
	}

	return c.Status(fiber.StatusOK).JSON(results)
}
