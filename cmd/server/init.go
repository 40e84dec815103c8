package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"message_mate/config"
	"message_mate/internal/bootstrap"
	"message_mate/internal/global"
)

// Hàm khởi tạo các thành phần dùng chung
func InitGlobal(ctx context.Context) (*config.Configuration, *bootstrap.App) {
	initValidator() // Khởi tạo validator
	cfg := initConfig()
	return cfg, initApp(ctx, cfg)
}

// Hàm khởi tạo validator (đăng ký custom validators: no_xss, platform, graph_id)
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

// Hàm khởi tạo cấu hình server
func initConfig() *config.Configuration {
	cfg := config.NewConfig()
	if cfg == nil {
		logrus.Fatalf("Failed to initialize config: config is nil")
	}
	if err := global.Validate.Struct(cfg); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}
	logrus.Info("Initialized server config")
	return cfg
}

// Hàm khởi tạo store, feed, Graph client và Engine
func initApp(ctx context.Context, cfg *config.Configuration) *bootstrap.App {
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize sync session: %v", err)
	}
	return app
}
