package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pathlearn/lms-api/model"
	"github.com/pathlearn/lms-api/services"
	authutil "github.com/pathlearn/lms-api/utils/auth"
	"github.com/pathlearn/lms-api/utils/response"
	"gorm.io/gorm"
)

const resetTokenTTL = 1 * time.Hour

// ForgotPasswordRequest represents a password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the reset submission
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ForgotPassword issues a single-use reset token and emails it to the user.
// The response is identical whether or not the email exists.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	genericMsg := "If that email is registered, a reset link has been sent."

	var user model.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return response.SuccessWithMessage(c, genericMsg, nil)
	}

	token, err := authutil.GenerateResetToken()
	if err != nil {
		return response.InternalServerError(c, "Failed to generate reset token")
	}

	resetToken := model.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := h.db.Create(&resetToken).Error; err != nil {
		return response.InternalServerError(c, "Failed to create reset token")
	}

	// Email delivery is best effort; the token is logged server-side when
	// SMTP is not configured.
	emailService := services.NewEmailService()
	_ = emailService.SendPasswordResetEmail(user.Email, token, user.Name)

	return response.SuccessWithMessage(c, genericMsg, nil)
}

// ResetPassword consumes a reset token and sets the new password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var resetToken model.PasswordResetToken
	if err := h.db.Where("token = ?", req.Token).First(&resetToken).Error; err != nil {
		return response.BadRequest(c, "Invalid or expired reset token")
	}

	if resetToken.IsExpired() || resetToken.IsUsed() {
		return response.BadRequest(c, "Invalid or expired reset token")
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).
			Where("id = ?", resetToken.UserID).
			Update("password_hash", hashedPassword).Error; err != nil {
			return err
		}

		resetToken.MarkAsUsed()
		if err := tx.Save(&resetToken).Error; err != nil {
			return err
		}

		// Invalidate all existing sessions
		return tx.Model(&model.User{}).
			Where("id = ?", resetToken.UserID).
			UpdateColumn("token_version", gorm.Expr("token_version + ?", 1)).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to reset password")
	}

	return response.SuccessWithMessage(c, "Password reset successfully", nil)
}
