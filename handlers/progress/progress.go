package progress

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pathlearn/lms-api/services"
	"github.com/pathlearn/lms-api/utils/middleware"
	"github.com/pathlearn/lms-api/utils/response"
	"gorm.io/gorm"
)

// ProgressHandler records chapter and module completions for the
// authenticated learner and serves the progress summary.
type ProgressHandler struct {
	db       *gorm.DB
	progress *services.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(db *gorm.DB, progress *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{db: db, progress: progress}
}

// CompleteChapter marks a chapter as read. Repeat calls are no-ops.
// POST /progress/modules/:id/chapters/:chapterId/complete
func (h *ProgressHandler) CompleteChapter(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	moduleID, err := parseUintParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid module ID")
	}
	chapterID, err := parseUintParam(c, "chapterId")
	if err != nil {
		return response.BadRequest(c, "Invalid chapter ID")
	}

	if err := h.progress.RecordChapterCompletion(c.Context(), user.ID, moduleID, chapterID); err != nil {
		switch {
		case errors.Is(err, services.ErrModuleNotFound):
			return response.NotFound(c, "Module not found")
		case errors.Is(err, services.ErrChapterNotFound):
			return response.NotFound(c, "Chapter not found")
		default:
			return response.InternalServerError(c, "Failed to record chapter completion")
		}
	}

	return response.SuccessWithMessage(c, "Chapter completed", nil)
}

// CompleteModule marks a module as complete, credits XP on first completion,
// and reports any paths completed as a result.
// POST /progress/modules/:id/complete
func (h *ProgressHandler) CompleteModule(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	moduleID, err := parseUintParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid module ID")
	}

	result, err := h.progress.RecordModuleCompletion(c.Context(), user.ID, moduleID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrModuleNotFound):
			return response.NotFound(c, "Module not found")
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.InternalServerError(c, "Failed to record module completion")
		}
	}

	return response.SuccessWithMessage(c, "Module completed", result)
}

// Summary returns the caller's XP, level, and per-path progress
// GET /progress/summary
func (h *ProgressHandler) Summary(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	summary, err := h.progress.GetSummary(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch progress summary")
	}

	return response.Success(c, summary)
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
