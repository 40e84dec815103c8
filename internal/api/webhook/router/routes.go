// Package router đăng ký route webhook Meta (public, xác thực bằng chữ ký).
package router

import (
	"github.com/gofiber/fiber/v3"

	apirouter "message_mate/internal/api/router"
	webhookhdl "message_mate/internal/api/webhook/handler"
)

// Register trả về hàm đăng ký GET/POST /meta/webhook
func Register(h *webhookhdl.MetaWebhookHandler) apirouter.RegisterFunc {
	return func(v1 fiber.Router) error {
		v1.Get("/meta/webhook", h.HandleVerify)
		v1.Post("/meta/webhook", h.HandleEvent)
		return nil
	}
}
