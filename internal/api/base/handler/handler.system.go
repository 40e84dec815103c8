package basehdl

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"message_mate/internal/common"
)

// HealthCheck kiểm tra một phụ thuộc (database, cache...), trả về lỗi nếu không khả dụng
type HealthCheck func(ctx context.Context) error

// SystemHandler xử lý các route liên quan đến system operations
type SystemHandler struct {
	*BaseHandler
	checks map[string]HealthCheck
}

// NewSystemHandler tạo SystemHandler với các health check theo tên service
func NewSystemHandler(checks map[string]HealthCheck) *SystemHandler {
	return &SystemHandler{BaseHandler: NewBaseHandler(), checks: checks}
}

// HandleHealth kiểm tra tình trạng hệ thống
// @Summary Kiểm tra tình trạng hệ thống
// @Success 200 {object} map[string]interface{} "Hệ thống hoạt động bình thường"
// @Failure 503 {object} map[string]interface{} "Hệ thống đang gặp sự cố"
// @Router /system/health [get]
func (h *SystemHandler) HandleHealth(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	services := fiber.Map{"api": "ok"}
	healthData := fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			services[name] = "error"
			healthData["status"] = "degraded"
			healthData[name+"_error"] = err.Error()
			continue
		}
		services[name] = "ok"
	}

	if healthData["status"] != "healthy" {
		return JSONResponse(c, common.StatusServiceUnavailable, fiber.Map{
			"code":    common.StatusServiceUnavailable,
			"message": "Hệ thống đang gặp sự cố",
			"data":    healthData,
			"status":  "error",
		})
	}
	return JSONResponse(c, common.StatusOK, fiber.Map{
		"code":    common.StatusOK,
		"message": common.MsgSuccess,
		"data":    healthData,
		"status":  "success",
	})
}
