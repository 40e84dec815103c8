package worker

import (
	"context"
	"time"

	"message_mate/internal/logger"
)

// Recounter đặt lại bộ đếm chưa đọc từ store (inboxsync.Engine)
type Recounter interface {
	RecountUnread(ctx context.Context)
}

// UnreadRecountWorker đồng bộ lại bộ đếm chưa đọc với store theo chu kỳ.
// Bộ đếm Redis có thể lệch khi nhiều tiến trình cùng ghi hoặc khi Redis mất dữ liệu.
type UnreadRecountWorker struct {
	engine   Recounter
	interval time.Duration
}

// NewUnreadRecountWorker tạo worker; interval tối thiểu 1 phút
func NewUnreadRecountWorker(engine Recounter, interval time.Duration) *UnreadRecountWorker {
	if interval < time.Minute {
		interval = 5 * time.Minute
	}
	return &UnreadRecountWorker{engine: engine, interval: interval}
}

// Start chạy worker trong vòng lặp tới khi ctx bị hủy
func (w *UnreadRecountWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithField("interval", w.interval.String()).Info("📬 [UNREAD_RECOUNT] Starting Unread Recount Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("📬 [UNREAD_RECOUNT] Unread Recount Worker stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithField("panic", r).Error("📬 [UNREAD_RECOUNT] Panic khi đếm lại, sẽ tiếp tục ở lần chạy tiếp theo")
					}
				}()
				w.engine.RecountUnread(ctx)
			}()
		}
	}
}
