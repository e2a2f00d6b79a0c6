package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pathlearn/lms-api/model"
	"github.com/pathlearn/lms-api/services"
	"github.com/pathlearn/lms-api/utils/response"
	"gorm.io/gorm"
)

// UserAdminHandler handles the admin user-management screens: listing,
// approval workflow, and progress resets.
type UserAdminHandler struct {
	db       *gorm.DB
	progress *services.ProgressService
	paths    *services.PathService
	email    *services.EmailService
}

// NewUserAdminHandler creates a new admin user handler
func NewUserAdminHandler(db *gorm.DB, progress *services.ProgressService, paths *services.PathService) *UserAdminHandler {
	return &UserAdminHandler{
		db:       db,
		progress: progress,
		paths:    paths,
		email:    services.NewEmailService(),
	}
}

// ListUsersRequest represents the query parameters for listing users
type ListUsersRequest struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Role   string `query:"role"`
	Status string `query:"status"`
	Search string `query:"search"`
}

// ListUsers retrieves all users with pagination and filters
// GET /admin/users
func (h *UserAdminHandler) ListUsers(c *fiber.Ctx) error {
	var req ListUsersRequest
	if err := c.QueryParser(&req); err != nil {
		return response.BadRequest(c, "Invalid query parameters")
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := h.db.Model(&model.User{})

	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		searchTerm := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count users")
	}

	var users []model.User
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Order("created_at DESC").Find(&users).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch users")
	}

	return response.SuccessWithMessage(c, "Users retrieved successfully", fiber.Map{
		"users":      users,
		"pagination": response.CalculatePagination(req.Page, req.Limit, total),
	})
}

// GetUser retrieves a specific user by ID
// GET /admin/users/:id
func (h *UserAdminHandler) GetUser(c *fiber.Ctx) error {
	userID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	return response.Success(c, fiber.Map{"user": user})
}

// ApproveUser activates a pending account
// POST /admin/users/:id/approve
func (h *UserAdminHandler) ApproveUser(c *fiber.Ctx) error {
	return h.reviewUser(c, model.UserStatusActive)
}

// RejectUser declines a pending account
// POST /admin/users/:id/reject
func (h *UserAdminHandler) RejectUser(c *fiber.Ctx) error {
	return h.reviewUser(c, model.UserStatusRejected)
}

func (h *UserAdminHandler) reviewUser(c *fiber.Ctx, newStatus string) error {
	userID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	if user.Status != model.UserStatusPending {
		return response.Conflict(c, "User is not awaiting review")
	}

	if err := h.db.Model(&model.User{}).
		Where("id = ?", user.ID).
		Update("status", newStatus).Error; err != nil {
		return response.InternalServerError(c, "Failed to update user status")
	}
	user.Status = newStatus

	// Notification is best effort
	if newStatus == model.UserStatusActive {
		_ = h.email.SendAccountApprovedEmail(user.Email, user.Name)
	} else {
		_ = h.email.SendAccountRejectedEmail(user.Email, user.Name)
	}

	return response.SuccessWithMessage(c, "User reviewed", fiber.Map{"user": user})
}

// ResetProgress wipes a user's progress, XP, and re-linearizes their path
// assignments
// POST /admin/users/:id/reset-progress
func (h *UserAdminHandler) ResetProgress(c *fiber.Ctx) error {
	userID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.progress.ResetUserProgress(c.Context(), userID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to reset progress")
	}

	return response.SuccessWithMessage(c, "Progress reset", nil)
}

// NormalizePaths runs the assignment status repair pass for one user
// POST /admin/users/:id/normalize-paths
func (h *UserAdminHandler) NormalizePaths(c *fiber.Ctx) error {
	userID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	changed, err := h.paths.NormalizeAssignments(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to normalize assignments")
	}

	return response.SuccessWithMessage(c, "Assignments normalized", fiber.Map{"statuses_changed": changed})
}

func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
