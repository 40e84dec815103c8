package logger

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// AuditAction là một hành động thay đổi trạng thái do người dùng thực hiện (chọn page, gửi tin...)
type AuditAction struct {
	Action     string                 `json:"action"`
	UserID     string                 `json:"user_id"`
	ResourceID string                 `json:"resource_id"`
	IP         string                 `json:"ip"`
	Details    map[string]interface{} `json:"details"`
	Timestamp  time.Time              `json:"timestamp"`
}

// LogAction ghi một hành động audit
func LogAction(action string, c fiber.Ctx, resourceID string, details map[string]interface{}) {
	audit := AuditAction{
		Action:     action,
		ResourceID: resourceID,
		IP:         c.IP(),
		Details:    details,
		Timestamp:  time.Now(),
	}
	if uid, ok := c.Locals("user_id").(string); ok {
		audit.UserID = uid
	}

	GetAuditLogger().WithFields(logrus.Fields{
		"action":      audit.Action,
		"user_id":     audit.UserID,
		"resource_id": audit.ResourceID,
		"ip":          audit.IP,
		"details":     audit.Details,
		"timestamp":   audit.Timestamp,
	}).Info("Audit action")
}
