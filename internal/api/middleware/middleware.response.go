package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"message_mate/internal/common"
)

// JSONResponse trả về JSON response với Content-Type: application/json; charset=utf-8
func JSONResponse(c fiber.Ctx, statusCode int, data interface{}) error {
	c.Set("Content-Type", "application/json; charset=utf-8")
	return c.Status(statusCode).JSON(data)
}

// HandleErrorResponse xử lý và trả về error response cho client.
// Tách riêng để tránh import cycle với handler package
func HandleErrorResponse(c fiber.Ctx, err error) {
	var customErr *common.Error
	if errors.As(err, &customErr) {
		_ = JSONResponse(c, customErr.StatusCode, fiber.Map{
			"code":    customErr.Code.Code,
			"message": customErr.Message,
			"status":  "error",
		})
		return
	}
	_ = JSONResponse(c, common.StatusInternalServerError, fiber.Map{
		"code":    common.ErrCodeInternalServer.Code,
		"message": err.Error(),
		"status":  "error",
	})
}
