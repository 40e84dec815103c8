// Package worker chứa các background worker chạy theo chu kỳ cho phiên đồng bộ.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/inboxsync"
	"message_mate/internal/logger"
)

// Refresher là phần Engine mà RefreshWorker dùng (inboxsync.Engine)
type Refresher interface {
	SelectedPage(ctx context.Context) (models.MetaPage, error)
	Refresh(ctx context.Context, pageID string) (inboxsync.RefreshResult, error)
	RefreshPages(ctx context.Context) ([]models.MetaPage, error)
}

// RefreshWorker refresh định kỳ trang đang chọn. Cứ pagesEvery lần thì list lại danh sách trang trước.
type RefreshWorker struct {
	engine     Refresher
	interval   time.Duration // Khoảng thời gian giữa các lần chạy
	pagesEvery int           // Số tick giữa hai lần RefreshPages (0 = không list lại)
	tick       int
}

// NewRefreshWorker tạo worker mới.
//
// Tham số:
//   - interval: Khoảng cách giữa các lần chạy (tối thiểu 10 giây)
//   - pagesEvery: Số lần chạy giữa hai lần list lại trang
func NewRefreshWorker(engine Refresher, interval time.Duration, pagesEvery int) *RefreshWorker {
	if interval < 10*time.Second {
		interval = 10 * time.Second
	}
	if pagesEvery < 0 {
		pagesEvery = 0
	}
	return &RefreshWorker{engine: engine, interval: interval, pagesEvery: pagesEvery}
}

// Start chạy worker trong vòng lặp tới khi ctx bị hủy
func (w *RefreshWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(logrus.Fields{
		"interval":   w.interval.String(),
		"pagesEvery": w.pagesEvery,
	}).Info("🔄 [REFRESH_WORKER] Starting Refresh Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("🔄 [REFRESH_WORKER] Refresh Worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce chạy một lượt; panic được log và bỏ qua để lượt sau vẫn chạy
func (w *RefreshWorker) RunOnce(ctx context.Context) {
	log := logger.GetAppLogger()
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("🔄 [REFRESH_WORKER] Panic khi refresh, sẽ tiếp tục ở lần chạy tiếp theo")
		}
	}()

	w.tick++
	if w.pagesEvery > 0 && w.tick%w.pagesEvery == 0 {
		if _, err := w.engine.RefreshPages(ctx); err != nil {
			log.WithError(err).Warn("🔄 [REFRESH_WORKER] List lại trang thất bại")
		}
	}

	page, err := w.engine.SelectedPage(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNoLinkedAccounts) {
			// chưa có trang nào được chọn: không có gì để làm
			return
		}
		log.WithError(err).Warn("🔄 [REFRESH_WORKER] Không đọc được trang đang chọn")
		return
	}

	res, err := w.engine.Refresh(ctx, page.PageId)
	if err != nil {
		log.WithError(err).WithField("page_id", page.PageId).Error("🔄 [REFRESH_WORKER] Refresh thất bại")
		return
	}
	if len(res.Refreshed) > 0 || len(res.Failed) > 0 {
		log.WithFields(logrus.Fields{
			"page_id":   page.PageId,
			"refreshed": len(res.Refreshed),
			"partial":   len(res.Partial),
			"failed":    len(res.Failed),
		}).Info("🔄 [REFRESH_WORKER] Đã refresh trang")
	}
}
