package router

import (
	"github.com/gofiber/fiber/v3"

	basehdl "message_mate/internal/api/base/handler"
)

// ============================================================================
// LƯU Ý FIBER V3 - CÁCH ĐĂNG KÝ MIDDLEWARE
// ============================================================================
//
// Middleware truyền trực tiếp vào route (router.Get(path, mw, handler)) không được gọi.
// Luôn dùng RegisterRouteWithMiddleware: middleware được gắn bằng .Use() trên group của prefix.
//
//	authMiddleware := middleware.AuthMiddleware(verify, true)
//	RegisterRouteWithMiddleware(v1, "/meta/page", "GET", "/list", []fiber.Handler{authMiddleware}, handler)
//
// ============================================================================

// RoutePrefix chứa các prefix cơ bản cho API
type RoutePrefix struct {
	Base string // Prefix cơ bản (/api)
	V1   string // Prefix cho API version 1 (/api/v1)
}

// NewRoutePrefix tạo RoutePrefix với giá trị mặc định
func NewRoutePrefix() RoutePrefix {
	base := "/api"
	return RoutePrefix{
		Base: base,
		V1:   base + "/v1",
	}
}

// RegisterRouteWithMiddleware đăng ký route với middleware qua .Use() trên group của prefix. Dùng từ domain router.
func RegisterRouteWithMiddleware(router fiber.Router, prefix string, method string, path string, middlewares []fiber.Handler, handler fiber.Handler) {
	routeGroup := router.Group(prefix)
	for _, mw := range middlewares {
		routeGroup.Use(mw)
	}

	switch method {
	case "GET":
		routeGroup.Get(path, handler)
	case "POST":
		routeGroup.Post(path, handler)
	case "PUT":
		routeGroup.Put(path, handler)
	case "DELETE":
		routeGroup.Delete(path, handler)
	}
}

// RegisterFunc là hàm đăng ký route của một domain (do domain/router export).
type RegisterFunc func(v1 fiber.Router) error

// SystemRoutes đăng ký /system/health
func SystemRoutes(h *basehdl.SystemHandler) RegisterFunc {
	return func(v1 fiber.Router) error {
		v1.Get("/system/health", h.HandleHealth)
		return nil
	}
}

// SetupRoutes thiết lập tất cả các route cho ứng dụng. Caller truyền lần lượt Register của từng domain để tránh import cycle.
func SetupRoutes(app *fiber.App, regs ...RegisterFunc) error {
	prefix := NewRoutePrefix()
	v1 := app.Group(prefix.V1)
	for _, reg := range regs {
		if err := reg(v1); err != nil {
			return err
		}
	}
	return nil
}
