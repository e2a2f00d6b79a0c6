package leaderboard

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pathlearn/lms-api/services"
	"github.com/pathlearn/lms-api/utils/response"
)

// LeaderboardHandler serves the XP leaderboard
type LeaderboardHandler struct {
	leaderboard *services.LeaderboardService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboard *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// Top returns the highest-XP learners
// GET /leaderboard
func (h *LeaderboardHandler) Top(c *fiber.Ctx) error {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return response.BadRequest(c, "Invalid limit")
		}
		limit = parsed
	}
	if limit > 100 {
		limit = 100
	}

	entries, err := h.leaderboard.Top(c.Context(), limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch leaderboard")
	}

	return response.Success(c, fiber.Map{"leaderboard": entries})
}
