package logger

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// WithRequest trả về logger entry với request context từ Fiber
func WithRequest(c fiber.Ctx) *logrus.Entry {
	entry := GetAppLogger().WithContext(c.Context())

	// requestid middleware set vào Locals, fallback sang header
	var requestID string
	if rid, ok := c.Locals("requestid").(string); ok {
		requestID = rid
	}
	if requestID == "" {
		requestID = c.GetRespHeader("X-Request-ID")
	}
	if requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
		entry = entry.WithField("user_id", uid)
	}

	return entry.WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
		"ip":     c.IP(),
	})
}

// WithModule trả về logger entry với module name (sync, graph, listener, webhook...)
func WithModule(module string) *logrus.Entry {
	return GetAppLogger().WithField("module", module)
}

// WithPage trả về entry của sync logger gắn module và page_id
func WithPage(module, pageID string) *logrus.Entry {
	return GetSyncLogger().WithFields(logrus.Fields{
		"module":  module,
		"page_id": pageID,
	})
}
