package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"message_mate/internal/common"
	"message_mate/internal/logger"
)

// VerifyFunc xác thực ID token và trả về uid (utility.VerifyIDToken qua Firebase Auth)
type VerifyFunc func(ctx context.Context, idToken string) (uid string, err error)

// AuthMiddleware xác thực Firebase ID token trong header Authorization: Bearer <token>.
// required = false: request không có token vẫn đi tiếp, token sai vẫn bị chặn.
func AuthMiddleware(verify VerifyFunc, required bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			if !required {
				return c.Next()
			}
			logger.GetAppLogger().WithFields(logrus.Fields{
				"path":   c.Path(),
				"method": c.Method(),
			}).Warn("❌ [AUTH] Missing Authorization header")
			HandleErrorResponse(c, common.ErrTokenMissing)
			return nil
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			HandleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}
		if verify == nil {
			HandleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}

		uid, err := verify(c.Context(), parts[1])
		if err != nil {
			logger.GetAppLogger().WithFields(logrus.Fields{
				"path":  c.Path(),
				"error": err.Error(),
			}).Warn("❌ [AUTH] ID token không hợp lệ")
			HandleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}

		c.Locals("user_id", uid)
		return c.Next()
	}
}
