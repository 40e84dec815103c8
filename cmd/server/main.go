package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"message_mate/internal/bootstrap"
	"message_mate/internal/logger"
	"message_mate/internal/worker"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Logger tự đọc environment variables để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.GetAppLogger().Info("Logger system initialized successfully")
}

// startWorkers chạy các background worker trong goroutine riêng với recover
func startWorkers(ctx context.Context, a *bootstrap.App) {
	log := logger.GetAppLogger()
	cfg := a.Config
	if cfg.SyncIntervalSeconds <= 0 {
		log.Info("🔄 [REFRESH_WORKER] Refresh worker disabled")
		return
	}

	interval := time.Duration(cfg.SyncIntervalSeconds) * time.Second
	refresh := worker.NewRefreshWorker(a.Engine, interval, 12)
	recount := worker.NewUnreadRecountWorker(a.Engine, 2*interval)

	for _, run := range []func(context.Context){refresh.Start, recount.Start} {
		go func(run func(context.Context)) {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("panic", r).Error("🔄 [WORKER] Worker goroutine panic")
				}
			}()
			run(ctx)
		}(run)
	}
}

// Hàm main
func main() {
	initLogger()
	defer logger.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, a := InitGlobal(ctx)
	defer a.Close()

	log := logger.GetAppLogger()

	// Lần đầu: list trang và chọn trang, lỗi không chặn server khởi động
	go func() {
		if _, err := a.Engine.RefreshPages(ctx); err != nil {
			log.WithError(err).Warn("🔄 [SYNC] List trang lúc khởi động thất bại")
		}
	}()
	startWorkers(ctx, a)

	app := InitFiberApp(a)
	go func() {
		<-ctx.Done()
		log.Info("Shutting down Fiber server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Fiber shutdown failed")
		}
	}()

	address := ":" + cfg.Address
	log.WithFields(map[string]interface{}{
		"address":  address,
		"protocol": "HTTP",
	}).Info("Starting server with HTTP")
	if err := app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		log.Fatalf("Error in Fiber Listen: %v", err)
	}
}
