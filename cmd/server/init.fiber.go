package main

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"

	basehdl "message_mate/internal/api/base/handler"
	metahdl "message_mate/internal/api/meta/handler"
	metarouter "message_mate/internal/api/meta/router"
	"message_mate/internal/api/middleware"
	apirouter "message_mate/internal/api/router"
	webhookhdl "message_mate/internal/api/webhook/handler"
	webhookrouter "message_mate/internal/api/webhook/router"
	"message_mate/internal/bootstrap"
	"message_mate/internal/common"
	"message_mate/internal/logger"
)

// InitFiberApp khởi tạo ứng dụng Fiber với các middleware cần thiết
func InitFiberApp(a *bootstrap.App) *fiber.App {
	cfg := a.Config
	app := fiber.New(fiber.Config{
		// =========================================
		// 1. CẤU HÌNH CƠ BẢN
		// =========================================
		AppName:       "Message Mate API",
		ServerHeader:  "Message Mate API",
		StrictRouting: true, // /foo và /foo/ là khác nhau
		CaseSensitive: true, // /Foo và /foo là khác nhau
		UnescapePath:  true, // Tự động decode URL-encoded paths

		// =========================================
		// 2. CẤU HÌNH PERFORMANCE / TIMEOUT
		// =========================================
		BodyLimit:    4 * 1024 * 1024, // Webhook Meta nhỏ, 4MB là đủ
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // Refresh trang có thể lâu
		IdleTimeout:  120 * time.Second,

		// =========================================
		// 3. CẤU HÌNH ERROR HANDLING
		// =========================================
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"
			errorCode := common.ErrCodeInternalServer.Code

			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
				message = fe.Message
				switch code {
				case fiber.StatusBadRequest:
					errorCode = common.ErrCodeValidationInput.Code
				case fiber.StatusUnauthorized:
					errorCode = common.ErrCodeAuthToken.Code
				case fiber.StatusNotFound, fiber.StatusConflict:
					errorCode = common.ErrCodeDatabaseQuery.Code
				}
			}

			fields := map[string]interface{}{
				"code":      code,
				"errorCode": errorCode,
				"message":   message,
			}
			logger.WithRequest(c).WithFields(fields).Error("Request error")
			if code >= fiber.StatusInternalServerError {
				logger.GetErrorLogger().WithFields(fields).WithError(err).WithField("path", c.Path()).Error("Request error")
			}

			return c.Status(code).JSON(fiber.Map{
				"code":    errorCode,
				"message": message,
				"status":  "error",
			})
		},
	})

	// =========================================
	// MIDDLEWARE STACK
	// =========================================

	// 1. Request ID Middleware - Tạo ID duy nhất cho mỗi request để trace
	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	// 2. CORS Middleware - đặt trước các middleware khác để xử lý preflight
	var allowOrigins []string
	if cfg.CORS_Origins == "*" {
		allowOrigins = []string{"*"}
	} else {
		for _, origin := range strings.Split(cfg.CORS_Origins, ",") {
			allowOrigins = append(allowOrigins, strings.TrimSpace(origin))
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: cfg.CORS_AllowCredentials,
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		MaxAge:           24 * 60 * 60,
	}))

	// 3. Security Headers Middleware
	app.Use(func(c fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	})

	// 4. Rate Limiting Middleware - webhook Meta và health check không bị giới hạn
	log := logger.GetAppLogger()
	if cfg.RateLimit_Enabled && cfg.RateLimit_Max > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit_Max,
			Expiration: time.Duration(cfg.RateLimit_Window) * time.Second,
			KeyGenerator: func(c fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"code":    common.ErrCodeBusinessOperation.Code,
					"message": "Quá nhiều yêu cầu, vui lòng thử lại sau",
					"status":  "error",
				})
			},
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/system/health" ||
					c.Path() == "/api/v1/meta/webhook" ||
					c.Method() == "OPTIONS"
			},
		}))
		log.Infof("Rate limiting enabled: %d requests per %d seconds", cfg.RateLimit_Max, cfg.RateLimit_Window)
	} else {
		log.Info("Rate limiting disabled")
	}

	// 5. Recover Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			logger.WithRequest(c).WithField("panic", e).Error("Panic recovered")
		},
	}))

	// =========================================
	// ROUTES
	// =========================================
	verify := a.VerifyIDToken()
	if cfg.AuthRequired && verify == nil {
		log.Fatal("AUTH_REQUIRED=true nhưng Firebase Auth chưa được khởi tạo")
	}

	meta := metarouter.Handlers{
		Page:         metahdl.NewMetaPageHandler(a.Engine, a.Store),
		Conversation: metahdl.NewMetaConversationHandler(a.Engine, a.Store),
	}
	if a.Docs.Enabled() {
		meta.Business = metahdl.NewMetaBusinessHandler(a.Docs, a.Store)
	}
	webhook := webhookhdl.NewMetaWebhookHandler(a.Feed, a.Engine, cfg.MetaAppSecret, cfg.MetaWebhookVerifyTok)

	if err := apirouter.SetupRoutes(app,
		apirouter.SystemRoutes(basehdl.NewSystemHandler(a.HealthChecks())),
		webhookrouter.Register(webhook),
		metarouter.Register(meta, middleware.AuthMiddleware(verify, cfg.AuthRequired)),
	); err != nil {
		log.Fatalf("Failed to setup routes: %v", err)
	}

	return app
}
