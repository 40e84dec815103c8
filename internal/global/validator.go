package global

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"message_mate/internal/api/meta/models"
)

// Validate là validator dùng chung cho DTO và cấu hình
var Validate = newValidator()

// InitValidator khởi tạo lại validator với các custom validator
func InitValidator() {
	Validate = newValidator()
}

func newValidator() *validator.Validate {
	v := validator.New()

	// Đăng ký các custom validator
	_ = v.RegisterValidation("no_xss", validateNoXSS)
	_ = v.RegisterValidation("platform", validatePlatform)
	_ = v.RegisterValidation("graph_id", validateGraphID)
	return v
}

// validateNoXSS kiểm tra XSS
func validateNoXSS(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())
	dangerousPatterns := []string{
		"<script",
		"javascript:",
		"onerror=",
		"onload=",
		"<iframe",
		"<object",
		"<embed",
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(value, pattern) {
			return false
		}
	}
	return true
}

// validatePlatform chỉ chấp nhận facebook hoặc instagram
func validatePlatform(fl validator.FieldLevel) bool {
	return models.Platform(fl.Field().String()).Valid()
}

// validateGraphID kiểm tra id của Graph API: chữ số, chữ cái, "_", "-", ".", ":" (id tin nhắn dạng m_xxx, t_xxx, aWdf...)
func validateGraphID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" || len(value) > 512 {
		return false
	}
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '_' || r == '-' || r == '.' || r == ':' || r == '=' || r == '+' || r == '/':
		default:
			return false
		}
	}
	return true
}
