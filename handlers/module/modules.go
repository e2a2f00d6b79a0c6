package module

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pathlearn/lms-api/model"
	"github.com/pathlearn/lms-api/utils/response"
	"github.com/pathlearn/lms-api/utils/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ModuleHandler serves the module catalog to learners and the module CRUD
// surface to admins.
type ModuleHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewModuleHandler creates a new module handler
func NewModuleHandler(db *gorm.DB) *ModuleHandler {
	return &ModuleHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// ListModulesRequest represents the query parameters for listing modules
type ListModulesRequest struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Tag    string `query:"tag"`
	Search string `query:"search"`
}

// CreateModuleRequest represents the payload for creating a module
type CreateModuleRequest struct {
	Title       string   `json:"title" validate:"required,min=2,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	XP          int      `json:"xp" validate:"min=0"`
	Tags        []string `json:"tags" validate:"max=20,dive,min=1,max=50"`
}

// UpdateModuleRequest represents the payload for updating a module
type UpdateModuleRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=2,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	XP          *int      `json:"xp" validate:"omitempty,min=0"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
}

// CreateChapterRequest represents the payload for adding a chapter to a module
type CreateChapterRequest struct {
	Title    string `json:"title" validate:"required,min=2,max=200"`
	Body     string `json:"body" validate:"max=100000"`
	Position int    `json:"position" validate:"min=0"`
}

// ListModules retrieves the module catalog with optional tag and text filters
// GET /modules
func (h *ModuleHandler) ListModules(c *fiber.Ctx) error {
	var req ListModulesRequest
	if err := c.QueryParser(&req); err != nil {
		return response.BadRequest(c, "Invalid query parameters")
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := h.db.Model(&model.Module{})
	if req.Search != "" {
		searchTerm := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}
	if req.Tag != "" {
		// JSON array containment; LIKE on the serialized column works on both
		// postgres jsonb text and sqlite.
		query = query.Where("tags LIKE ?", "%\""+req.Tag+"\"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count modules")
	}

	var modules []model.Module
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Order("created_at ASC").Find(&modules).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch modules")
	}

	return response.SuccessWithMessage(c, "Modules retrieved successfully", fiber.Map{
		"modules":    modules,
		"pagination": response.CalculatePagination(req.Page, req.Limit, total),
	})
}

// GetModule retrieves a module with its chapters in reading order
// GET /modules/:id
func (h *ModuleHandler) GetModule(c *fiber.Ctx) error {
	moduleID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid module ID")
	}

	var mod model.Module
	if err := h.db.Preload("Chapters", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC, id ASC")
	}).First(&mod, moduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Module not found")
		}
		return response.InternalServerError(c, "Failed to fetch module")
	}

	return response.Success(c, fiber.Map{"module": mod})
}

// CreateModule creates a new module
// POST /admin/modules
func (h *ModuleHandler) CreateModule(c *fiber.Ctx) error {
	var req CreateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	mod := model.Module{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		XP:          req.XP,
		Tags:        normalizeTags(req.Tags),
	}

	if err := h.db.Create(&mod).Error; err != nil {
		return response.InternalServerError(c, "Failed to create module")
	}

	return response.Created(c, fiber.Map{"module": mod})
}

// UpdateModule updates an existing module
// PUT /admin/modules/:id
func (h *ModuleHandler) UpdateModule(c *fiber.Ctx) error {
	moduleID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid module ID")
	}

	var req UpdateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var mod model.Module
	if err := h.db.First(&mod, moduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Module not found")
		}
		return response.InternalServerError(c, "Failed to fetch module")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.XP != nil {
		updates["xp"] = *req.XP
	}
	if req.Tags != nil {
		updates["tags"] = normalizeTags(*req.Tags)
	}
	if len(updates) == 0 {
		return response.BadRequest(c, "No fields to update")
	}

	if err := h.db.Model(&mod).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update module")
	}

	return response.SuccessWithMessage(c, "Module updated", fiber.Map{"module": mod})
}

// DeleteModule removes a module; path memberships cascade away
// DELETE /admin/modules/:id
func (h *ModuleHandler) DeleteModule(c *fiber.Ctx) error {
	moduleID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid module ID")
	}

	result := h.db.Delete(&model.Module{}, moduleID)
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete module")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Module not found")
	}

	return response.SuccessWithMessage(c, "Module deleted", nil)
}

// CreateChapter appends a chapter to a module
// POST /admin/modules/:id/chapters
func (h *ModuleHandler) CreateChapter(c *fiber.Ctx) error {
	moduleID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid module ID")
	}

	var req CreateChapterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var mod model.Module
	if err := h.db.First(&mod, moduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Module not found")
		}
		return response.InternalServerError(c, "Failed to fetch module")
	}

	chapter := model.Chapter{
		ModuleID: mod.ID,
		Title:    strings.TrimSpace(req.Title),
		Body:     req.Body,
		Position: req.Position,
	}
	if chapter.Position == 0 {
		var maxPos int
		h.db.Model(&model.Chapter{}).
			Where("module_id = ?", mod.ID).
			Select("COALESCE(MAX(position), 0)").Scan(&maxPos)
		chapter.Position = maxPos + 1
	}

	if err := h.db.Create(&chapter).Error; err != nil {
		return response.InternalServerError(c, "Failed to create chapter")
	}

	return response.Created(c, fiber.Map{"chapter": chapter})
}

// DeleteChapter removes a chapter from a module
// DELETE /admin/modules/:id/chapters/:chapterId
func (h *ModuleHandler) DeleteChapter(c *fiber.Ctx) error {
	moduleID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid module ID")
	}
	chapterID, err := strconv.ParseUint(c.Params("chapterId"), 10, 32)
	if err != nil || chapterID == 0 {
		return response.BadRequest(c, "Invalid chapter ID")
	}

	result := h.db.Where("module_id = ?", moduleID).Delete(&model.Chapter{}, uint(chapterID))
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete chapter")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Chapter not found")
	}

	return response.SuccessWithMessage(c, "Chapter deleted", nil)
}

func normalizeTags(tags []string) datatypes.JSONSlice[string] {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return datatypes.NewJSONSlice(out)
}

func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
