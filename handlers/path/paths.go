package path

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pathlearn/lms-api/model"
	"github.com/pathlearn/lms-api/services"
	"github.com/pathlearn/lms-api/utils/middleware"
	"github.com/pathlearn/lms-api/utils/response"
	"github.com/pathlearn/lms-api/utils/validation"
	"gorm.io/gorm"
)

// PathHandler serves learning paths: the learner's ordered sequence view and
// the admin CRUD and assignment surface.
type PathHandler struct {
	db        *gorm.DB
	paths     *services.PathService
	validator *validation.Validator
}

// NewPathHandler creates a new learning path handler
func NewPathHandler(db *gorm.DB, paths *services.PathService) *PathHandler {
	return &PathHandler{
		db:        db,
		paths:     paths,
		validator: validation.NewValidator(),
	}
}

// CreatePathRequest represents the payload for creating a learning path
type CreatePathRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=5000"`
	ModuleIDs   []uint `json:"module_ids" validate:"max=100"`
}

// UpdatePathRequest represents the payload for updating a learning path
type UpdatePathRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

// AssignPathRequest represents the payload for assigning a path to a user
type AssignPathRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// PathModuleRequest represents the payload for adding a module to a path
type PathModuleRequest struct {
	ModuleID uint `json:"module_id" validate:"required"`
}

// MyPaths returns the caller's assigned paths in sequence order with
// per-path module progress
// GET /paths
func (h *PathHandler) MyPaths(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	assignments, err := h.paths.OrderedAssignments(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch assigned paths")
	}

	return response.Success(c, fiber.Map{"assignments": assignments})
}

// ListPaths retrieves all learning paths in sequence order
// GET /admin/paths
func (h *PathHandler) ListPaths(c *fiber.Ctx) error {
	var paths []model.LearningPath
	if err := h.db.Order("created_at ASC, id ASC").Find(&paths).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch learning paths")
	}

	return response.Success(c, fiber.Map{"paths": paths})
}

// GetPath retrieves a learning path with its member modules
// GET /admin/paths/:id
func (h *PathHandler) GetPath(c *fiber.Ctx) error {
	pathID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid path ID")
	}

	var path model.LearningPath
	if err := h.db.First(&path, pathID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Learning path not found")
		}
		return response.InternalServerError(c, "Failed to fetch learning path")
	}

	var modules []model.Module
	if err := h.db.Model(&model.Module{}).
		Joins("JOIN learning_path_modules lpm ON lpm.module_id = modules.id").
		Where("lpm.learning_path_id = ?", path.ID).
		Order("lpm.position ASC, modules.id ASC").
		Find(&modules).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch path modules")
	}

	return response.Success(c, fiber.Map{
		"path":    path,
		"modules": modules,
	})
}

// CreatePath creates a learning path, optionally with an initial module set
// POST /admin/paths
func (h *PathHandler) CreatePath(c *fiber.Ctx) error {
	var req CreatePathRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	path := model.LearningPath{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&path).Error; err != nil {
			return err
		}
		for i, moduleID := range req.ModuleIDs {
			var count int64
			if err := tx.Model(&model.Module{}).Where("id = ?", moduleID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return services.ErrModuleNotFound
			}
			member := model.LearningPathModule{LearningPathID: path.ID, ModuleID: moduleID, Position: i + 1}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, services.ErrModuleNotFound) {
			return response.BadRequest(c, "One or more modules do not exist")
		}
		return response.InternalServerError(c, "Failed to create learning path")
	}

	return response.Created(c, fiber.Map{"path": path})
}

// UpdatePath updates a learning path's title or description
// PUT /admin/paths/:id
func (h *PathHandler) UpdatePath(c *fiber.Ctx) error {
	pathID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid path ID")
	}

	var req UpdatePathRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var path model.LearningPath
	if err := h.db.First(&path, pathID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Learning path not found")
		}
		return response.InternalServerError(c, "Failed to fetch learning path")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		return response.BadRequest(c, "No fields to update")
	}

	if err := h.db.Model(&path).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update learning path")
	}

	return response.SuccessWithMessage(c, "Learning path updated", fiber.Map{"path": path})
}

// DeletePath removes a learning path and its memberships and assignments
// DELETE /admin/paths/:id
func (h *PathHandler) DeletePath(c *fiber.Ctx) error {
	pathID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid path ID")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&model.LearningPath{}, pathID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return services.ErrPathNotFound
		}
		if err := tx.Where("learning_path_id = ?", pathID).Delete(&model.LearningPathModule{}).Error; err != nil {
			return err
		}
		return tx.Where("learning_path_id = ?", pathID).Delete(&model.PathAssignment{}).Error
	})
	if err != nil {
		if errors.Is(err, services.ErrPathNotFound) {
			return response.NotFound(c, "Learning path not found")
		}
		return response.InternalServerError(c, "Failed to delete learning path")
	}

	return response.SuccessWithMessage(c, "Learning path deleted", nil)
}

// AddModule adds a module to a learning path
// POST /admin/paths/:id/modules
func (h *PathHandler) AddModule(c *fiber.Ctx) error {
	pathID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid path ID")
	}

	var req PathModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var path model.LearningPath
	if err := h.db.First(&path, pathID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Learning path not found")
		}
		return response.InternalServerError(c, "Failed to fetch learning path")
	}

	var count int64
	if err := h.db.Model(&model.Module{}).Where("id = ?", req.ModuleID).Count(&count).Error; err != nil {
		return response.InternalServerError(c, "Failed to verify module")
	}
	if count == 0 {
		return response.NotFound(c, "Module not found")
	}

	var existing int64
	if err := h.db.Model(&model.LearningPathModule{}).
		Where("learning_path_id = ? AND module_id = ?", path.ID, req.ModuleID).
		Count(&existing).Error; err != nil {
		return response.InternalServerError(c, "Failed to verify path membership")
	}
	if existing > 0 {
		return response.Conflict(c, "Module is already part of this path")
	}

	var maxPos int
	h.db.Model(&model.LearningPathModule{}).
		Where("learning_path_id = ?", path.ID).
		Select("COALESCE(MAX(position), 0)").Scan(&maxPos)

	member := model.LearningPathModule{LearningPathID: path.ID, ModuleID: req.ModuleID, Position: maxPos + 1}
	if err := h.db.Create(&member).Error; err != nil {
		// Concurrent insert of the same membership trips the unique key.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict(c, "Module is already part of this path")
		}
		return response.InternalServerError(c, "Failed to add module to path")
	}

	return response.Created(c, fiber.Map{"membership": member})
}

// RemoveModule removes a module from a learning path
// DELETE /admin/paths/:id/modules/:moduleId
func (h *PathHandler) RemoveModule(c *fiber.Ctx) error {
	pathID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid path ID")
	}
	moduleID, err := strconv.ParseUint(c.Params("moduleId"), 10, 32)
	if err != nil || moduleID == 0 {
		return response.BadRequest(c, "Invalid module ID")
	}

	result := h.db.Where("learning_path_id = ? AND module_id = ?", pathID, uint(moduleID)).
		Delete(&model.LearningPathModule{})
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to remove module from path")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Module is not part of this path")
	}

	return response.SuccessWithMessage(c, "Module removed from path", nil)
}

// AssignPath assigns a learning path to a learner
// POST /admin/paths/:id/assign
func (h *PathHandler) AssignPath(c *fiber.Ctx) error {
	pathID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid path ID")
	}

	var req AssignPathRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	assignment, err := h.paths.AssignPath(c.Context(), req.UserID, pathID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrPathNotFound):
			return response.NotFound(c, "Learning path not found")
		case errors.Is(err, services.ErrAlreadyAssigned):
			return response.Conflict(c, "Path is already assigned to this user")
		default:
			return response.InternalServerError(c, "Failed to assign learning path")
		}
	}

	return response.Created(c, fiber.Map{"assignment": assignment})
}

func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
