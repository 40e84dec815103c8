package inboxsync

import (
	"context"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/logger"
	"message_mate/internal/store"
)

// Selection là kết quả một lần chọn trang
type Selection struct {
	Page     *models.MetaPage // nil = không có trang nào đang hoạt động
	Previous string           // pageId trước đó
	Changed  bool
}

// Selector chọn trang của phiên theo thứ tự ưu tiên:
// trang đang chọn còn hoạt động > trang active có isDefault > trang active đầu tiên theo thứ tự list.
// Trang được chọn luôn là trang duy nhất có isDefault.
type Selector struct {
	store   store.Store
	queue   *store.WriteQueue
	session *Session
}

// NewSelector tạo Selector
func NewSelector(st store.Store, queue *store.WriteQueue, session *Session) *Selector {
	return &Selector{store: st, queue: queue, session: session}
}

// Evaluate chạy một lượt chọn sau mỗi lần refresh danh sách trang
func (s *Selector) Evaluate(ctx context.Context) (Selection, error) {
	return s.choose(ctx, precedence)
}

// precedence: trang đang chọn > isDefault > trang đầu tiên
func precedence(active []models.MetaPage, current string) *models.MetaPage {
	for i := range active {
		if active[i].PageId == current {
			return &active[i]
		}
	}
	for i := range active {
		if active[i].IsDefault {
			return &active[i]
		}
	}
	if len(active) > 0 {
		return &active[0]
	}
	return nil
}

// ErrPageInactive trả về khi chọn thủ công một trang không còn hoạt động
var ErrPageInactive = common.NewError(common.ErrCodeBusinessState, "Trang không còn hoạt động", common.StatusBadRequest, nil)

// Select chọn thủ công một trang đang hoạt động
func (s *Selector) Select(ctx context.Context, pageID string) (Selection, error) {
	page, err := s.store.FindPage(ctx, pageID)
	if err != nil {
		return Selection{}, err
	}
	if !page.Active {
		return Selection{}, ErrPageInactive
	}
	return s.choose(ctx, func(active []models.MetaPage, current string) *models.MetaPage {
		for i := range active {
			if active[i].PageId == pageID {
				return &active[i]
			}
		}
		// trang vừa bị vô hiệu hóa giữa chừng
		return precedence(active, current)
	})
}

func (s *Selector) choose(ctx context.Context, pick func(active []models.MetaPage, current string) *models.MetaPage) (Selection, error) {
	var sel Selection
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		pages, err := s.store.ListPages(ctx, false)
		if err != nil {
			return err
		}
		active := make([]models.MetaPage, 0, len(pages))
		for _, p := range pages {
			if p.Active {
				active = append(active, p)
			}
		}

		chosen := pick(active, s.session.Selected())
		chosenID := ""
		if chosen != nil {
			chosenID = chosen.PageId
		}

		// ≤ 1 trang isDefault: chỉ trang được chọn giữ cờ
		for i := range pages {
			want := chosenID != "" && pages[i].PageId == chosenID
			if pages[i].IsDefault == want {
				continue
			}
			pages[i].IsDefault = want
			if err := s.store.SavePage(ctx, &pages[i]); err != nil {
				return err
			}
		}

		if chosen != nil {
			chosen.IsDefault = true
			page := *chosen
			sel.Page = &page
		}
		sel.Previous = s.session.setSelected(chosenID)
		sel.Changed = sel.Previous != chosenID
		return nil
	})
	if err != nil {
		logger.WithModule("selector").WithError(err).Error("📌 [SELECTOR] Lỗi khi chọn trang")
		return Selection{}, err
	}

	log := logger.WithModule("selector").WithField("previous", sel.Previous)
	switch {
	case sel.Page == nil:
		log.Warn("📌 [SELECTOR] Không có trang nào đang hoạt động")
	case sel.Changed:
		log.WithField("page_id", sel.Page.PageId).Info("📌 [SELECTOR] Đã đổi trang được chọn")
	}
	return sel, nil
}
