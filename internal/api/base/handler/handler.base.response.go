package basehdl

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v3"

	"message_mate/internal/common"
	"message_mate/internal/logger"
)

// JSONResponse trả về JSON response với Content-Type: application/json; charset=utf-8
func JSONResponse(c fiber.Ctx, statusCode int, data interface{}) error {
	c.Set("Content-Type", "application/json; charset=utf-8")
	return c.Status(statusCode).JSON(data)
}

// SafeHandler bọc handler với recover để server luôn trả về response, kể cả khi có panic.
//
// Parameters:
// - c: Fiber context
// - handler: Function xử lý chính của handler
func (h *BaseHandler) SafeHandler(c fiber.Ctx, handler func() error) error {
	defer func() {
		if r := recover(); r != nil {
			logger.WithRequest(c).WithField("stack", string(debug.Stack())).Error("💥 [API] Panic trong handler")
			h.HandleResponse(c, nil, common.NewError(
				common.ErrCodeInternalServer,
				fmt.Sprintf("Lỗi hệ thống không mong muốn: %v", r),
				common.StatusInternalServerError,
				nil,
			))
		}
	}()
	return handler()
}

// HandleResponse chuẩn hóa response {code, message, data, status} trả về cho client.
//
// Parameters:
// - c: Fiber context
// - data: Dữ liệu trả về (nil nếu chỉ trả về lỗi)
// - err: Lỗi nếu có
func (h *BaseHandler) HandleResponse(c fiber.Ctx, data interface{}, err error) {
	if err != nil {
		var customErr *common.Error
		if errors.As(err, &customErr) {
			details := customErr.Details
			if cause, ok := details.(error); ok {
				details = cause.Error()
			}
			_ = JSONResponse(c, customErr.StatusCode, fiber.Map{
				"code":    customErr.Code.Code,
				"message": customErr.Message,
				"details": details,
				"status":  "error",
			})
			return
		}
		logger.WithRequest(c).WithError(err).Error("💥 [API] Lỗi không xác định")
		_ = JSONResponse(c, common.StatusInternalServerError, fiber.Map{
			"code":    common.ErrCodeInternalServer.Code,
			"message": err.Error(),
			"status":  "error",
		})
		return
	}

	_ = JSONResponse(c, common.StatusOK, fiber.Map{
		"code":    common.StatusOK,
		"message": common.MsgSuccess,
		"data":    data,
		"status":  "success",
	})
}
