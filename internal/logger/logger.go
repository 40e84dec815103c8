package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// loggers map lưu các logger instances
	loggers   = make(map[string]*logrus.Logger)
	hooks     []*AsyncHook
	loggersMu sync.Mutex

	// config chứa cấu hình logging
	config *LogConfig

	// rootDir lưu đường dẫn gốc của project
	rootDir string
)

// Init khởi tạo hệ thống logging với cấu hình
func Init(cfg *LogConfig) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	config = cfg

	if err := initRootDir(); err != nil {
		return fmt.Errorf("failed to initialize root directory: %w", err)
	}

	if config.Output == "file" || config.Output == "both" {
		if err := os.MkdirAll(getLogPath(), 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}

	return nil
}

// initRootDir ưu tiên LOG_ROOT_DIR, sau đó tìm thư mục chứa config/ hoặc logs/ từ working directory
func initRootDir() error {
	if rootDir != "" {
		return nil
	}

	if envRootDir := os.Getenv("LOG_ROOT_DIR"); envRootDir != "" {
		if resolved, err := filepath.EvalSymlinks(envRootDir); err == nil {
			rootDir = resolved
		} else {
			rootDir = envRootDir
		}
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not get working directory: %v", err)
	}

	currentDir := wd
	for i := 0; i < 5; i++ { // Tối đa đi lên 5 cấp
		if _, err := os.Stat(filepath.Join(currentDir, "logs")); err == nil {
			rootDir = currentDir
			return nil
		}
		if _, err := os.Stat(filepath.Join(currentDir, "config", "env")); err == nil {
			rootDir = currentDir
			return nil
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	rootDir = wd
	return nil
}

// getLogPath trả về đường dẫn thư mục logs
func getLogPath() string {
	if filepath.IsAbs(config.LogPath) {
		return config.LogPath
	}
	return filepath.Join(rootDir, config.LogPath)
}

// GetLogger trả về logger theo tên (app, sync, audit, error)
func GetLogger(name string) *logrus.Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Nếu chưa init, init với config mặc định
	if config == nil {
		if err := Init(nil); err != nil {
			panic(fmt.Sprintf("Failed to initialize logger: %v", err))
		}
	}

	if logger, ok := loggers[name]; ok {
		return logger
	}

	logger := createLogger(name)
	loggers[name] = logger
	return logger
}

// createLogger tạo một logger mới với cấu hình
func createLogger(name string) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
				logrus.FieldKeyFunc:  "function",
				logrus.FieldKeyFile:  "file",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return funcName, fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		})
	}

	// ⚠️ Không dùng MultiWriter: file I/O chậm sẽ block stdout và request handling.
	// Tất cả writers đi qua AsyncHook.
	var writers []io.Writer
	if config.Output == "file" || config.Output == "both" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   getLogFilePath(name),
			MaxSize:    config.MaxSize,    // MB
			MaxBackups: config.MaxBackups, // Số file cũ giữ lại
			MaxAge:     config.MaxAge,     // Số ngày
			Compress:   config.Compress,   // Nén file cũ
		})
	}
	if config.Output == "stdout" || config.Output == "both" {
		writers = append(writers, os.Stdout)
	}

	// FilterHook phải đứng trước AsyncHook
	logger.AddHook(NewFilterHook(config))

	if len(writers) > 0 {
		asyncHook := NewAsyncHookWithWriters(writers, 1000)
		logger.AddHook(asyncHook)
		hooks = append(hooks, asyncHook)
	}
	logger.SetOutput(io.Discard)
	logger.SetReportCaller(true)

	logger.WithFields(logrus.Fields{
		"logger": name,
		"level":  logger.GetLevel().String(),
		"format": config.Format,
		"output": config.Output,
	}).Debug("Logger initialized successfully")

	return logger
}

// getLogFilePath trả về đường dẫn file log cho logger name
func getLogFilePath(name string) string {
	var filename string
	switch name {
	case "app":
		filename = config.AppFile
	case "sync":
		filename = config.SyncFile
	case "audit":
		filename = config.AuditFile
	case "error":
		filename = config.ErrorFile
	default:
		filename = fmt.Sprintf("%s.log", name)
	}
	return filepath.Join(getLogPath(), filename)
}

// Close flush và đóng tất cả async hooks, gọi khi tắt ứng dụng
func Close() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, h := range hooks {
		_ = h.Close()
	}
	hooks = nil
}

// GetAppLogger trả về logger chính của ứng dụng
func GetAppLogger() *logrus.Logger {
	return GetLogger("app")
}

// GetSyncLogger trả về logger cho luồng đồng bộ (refresh, reconcile, realtime)
func GetSyncLogger() *logrus.Logger {
	return GetLogger("sync")
}

// GetAuditLogger trả về logger cho audit
func GetAuditLogger() *logrus.Logger {
	return GetLogger("audit")
}

// GetErrorLogger trả về logger cho errors
func GetErrorLogger() *logrus.Logger {
	return GetLogger("error")
}
