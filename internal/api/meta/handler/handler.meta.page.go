// Package metahdl xử lý các route /meta: trang, hội thoại, tin nhắn và thông tin doanh nghiệp.
package metahdl

import (
	"github.com/gofiber/fiber/v3"

	basehdl "message_mate/internal/api/base/handler"
	metadto "message_mate/internal/api/meta/dto"
	"message_mate/internal/inboxsync"
	"message_mate/internal/logger"
	"message_mate/internal/store"
)

// MetaPageHandler xử lý các yêu cầu liên quan đến trang
type MetaPageHandler struct {
	*basehdl.BaseHandler
	engine *inboxsync.Engine
	store  store.Store
}

// NewMetaPageHandler khởi tạo MetaPageHandler
func NewMetaPageHandler(engine *inboxsync.Engine, st store.Store) *MetaPageHandler {
	return &MetaPageHandler{BaseHandler: basehdl.NewBaseHandler(), engine: engine, store: st}
}

// HandleRefreshPages list lại các trang người dùng quản lý và chạy lựa chọn trang
func (h *MetaPageHandler) HandleRefreshPages(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		data, err := h.engine.RefreshPages(c.Context())
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleListPages trả về các trang theo thứ tự list (?active=true chỉ lấy trang đang hoạt động)
func (h *MetaPageHandler) HandleListPages(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		data, err := h.store.ListPages(c.Context(), c.Query("active") == "true")
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleSelectedPage trả về trang đang chọn
func (h *MetaPageHandler) HandleSelectedPage(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		data, err := h.engine.SelectedPage(c.Context())
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleSelectPage chọn thủ công một trang đang hoạt động
func (h *MetaPageHandler) HandleSelectPage(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		pageID, err := h.RequireParam(c, "pageId")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		data, err := h.engine.SelectPage(c.Context(), pageID)
		if err == nil {
			logger.LogAction("meta.page.select", c, pageID, nil)
		}
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleSync refresh hội thoại và tin nhắn của trang
func (h *MetaPageHandler) HandleSync(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		pageID, err := h.RequireParam(c, "pageId")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		data, err := h.engine.Refresh(c.Context(), pageID)
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleSyncStatus trả về cờ loading của trang
func (h *MetaPageHandler) HandleSyncStatus(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		pageID, err := h.RequireParam(c, "pageId")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if _, err := h.store.FindPage(c.Context(), pageID); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		h.HandleResponse(c, metadto.PageSyncStatus{
			PageId:   pageID,
			Loading:  h.engine.IsLoading(pageID),
			Selected: h.engine.Session().Selected() == pageID,
		}, nil)
		return nil
	})
}

// HandleListConversations trả về hội thoại của trang, mới cập nhật trước
func (h *MetaPageHandler) HandleListConversations(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		pageID, err := h.RequireParam(c, "pageId")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		data, err := h.store.ListConversations(c.Context(), pageID)
		h.HandleResponse(c, data, err)
		return nil
	})
}
