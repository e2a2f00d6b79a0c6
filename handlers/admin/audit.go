package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pathlearn/lms-api/model"
	"github.com/pathlearn/lms-api/utils/response"
	"gorm.io/gorm"
)

// AuditHandler exposes the admin action trail
type AuditHandler struct {
	db *gorm.DB
}

// NewAuditHandler creates a new audit log handler
func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// ListAuditLogsRequest represents the query parameters for listing audit logs
type ListAuditLogsRequest struct {
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
	AdminID  uint   `query:"admin_id"`
	Action   string `query:"action"`
	Resource string `query:"resource"`
}

// ListAuditLogs retrieves admin audit log entries, newest first
// GET /admin/audit-logs
func (h *AuditHandler) ListAuditLogs(c *fiber.Ctx) error {
	var req ListAuditLogsRequest
	if err := c.QueryParser(&req); err != nil {
		return response.BadRequest(c, "Invalid query parameters")
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 50
	}

	query := h.db.Model(&model.AdminAuditLog{})
	if req.AdminID != 0 {
		query = query.Where("admin_id = ?", req.AdminID)
	}
	if req.Action != "" {
		query = query.Where("action = ?", req.Action)
	}
	if req.Resource != "" {
		query = query.Where("resource = ?", req.Resource)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count audit logs")
	}

	var logs []model.AdminAuditLog
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Order("created_at DESC").Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch audit logs")
	}

	return response.SuccessWithMessage(c, "Audit logs retrieved successfully", fiber.Map{
		"logs":       logs,
		"pagination": response.CalculatePagination(req.Page, req.Limit, total),
	})
}
