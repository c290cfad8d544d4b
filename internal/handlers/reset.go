// internal/handlers/reset.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pharmaguard-back/internal/auth"
	"pharmaguard-back/internal/config"
	"pharmaguard-back/internal/mailer"
	"pharmaguard-back/internal/models"
)

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// forgotPasswordMessage is returned whether or not the account exists, so
// the endpoint cannot be used to enumerate accounts.
const forgotPasswordMessage = "If an account exists for this email, a reset code has been sent"

// ForgotPassword issues a 6-digit OTP valid for 10 minutes. Only the OTP's
// hash is stored. When no mailer is configured and the environment is not
// production, the OTP is echoed in the response for local testing.
func ForgotPassword(db *gorm.DB, cfg *config.Config, m *mailer.Mailer, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusOK, gin.H{"message": forgotPasswordMessage})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
			return
		}

		otp, err := auth.GenerateOTP()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate reset code"})
			return
		}

		expiry := time.Now().Add(auth.ResetWindowMinutes * time.Minute)
		user.ClearResetFields()
		user.ResetOTPHash = auth.HashOTP(otp)
		user.ResetOTPExpiry = &expiry

		if err := db.Save(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
			return
		}

		if m != nil {
			if err := m.SendResetOTP(user.Email, otp); err != nil {
				logger.Error("failed to send reset email", slog.String("error", err.Error()))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send reset email"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": forgotPasswordMessage})
			return
		}

		// Local-testing fallback: must never be reachable in production.
		if !cfg.IsProduction() {
			c.JSON(http.StatusOK, gin.H{"message": forgotPasswordMessage, "otp": otp})
			return
		}

		logger.Error("reset OTP generated but no mailer is configured in production")
		c.JSON(http.StatusOK, gin.H{"message": forgotPasswordMessage})
	}
}

// VerifyResetOTP exchanges a valid OTP for an opaque single-use reset
// token. Wrong and expired codes get the same answer.
func VerifyResetOTP(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		err := db.Where("email = ? AND reset_otp_hash = ? AND reset_otp_expiry > ?",
			normalizeEmail(req.Email), auth.HashOTP(req.OTP), time.Now()).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OTP"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify OTP"})
			return
		}

		expiry := time.Now().Add(auth.ResetWindowMinutes * time.Minute)
		user.ClearResetFields()
		user.ResetVerifiedToken = auth.GenerateResetToken()
		user.ResetVerifiedExpiry = &expiry

		if err := db.Save(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify OTP"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":     "OTP verified successfully",
			"reset_token": user.ResetVerifiedToken,
		})
	}
}

// ResetPassword consumes the verified-reset token and replaces the
// password hash. All reset state is cleared afterwards.
func ResetPassword(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		err := db.Where("reset_verified_token = ? AND reset_verified_expiry > ?",
			req.Token, time.Now()).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		user.Password = string(hashed)
		user.ClearResetFields()

		if err := db.Save(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
	}
}
