package metahdl

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v3"

	basehdl "message_mate/internal/api/base/handler"
	"message_mate/internal/common"
	"message_mate/internal/logger"
	"message_mate/internal/store"
)

// BusinessStore đọc / ghi thông tin doanh nghiệp của trang (docstore.Store)
type BusinessStore interface {
	BusinessInfo(ctx context.Context, pageID string) (map[string]interface{}, error)
	SetBusinessInfo(ctx context.Context, pageID string, fields map[string]interface{}) error
}

// MetaBusinessHandler xử lý thông tin doanh nghiệp; schema do client quyết định
type MetaBusinessHandler struct {
	*basehdl.BaseHandler
	docs  BusinessStore
	store store.Store
}

// NewMetaBusinessHandler khởi tạo MetaBusinessHandler
func NewMetaBusinessHandler(docs BusinessStore, st store.Store) *MetaBusinessHandler {
	return &MetaBusinessHandler{BaseHandler: basehdl.NewBaseHandler(), docs: docs, store: st}
}

// HandleGet đọc thông tin doanh nghiệp
func (h *MetaBusinessHandler) HandleGet(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		pageID, err := h.RequireParam(c, "pageId")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		data, err := h.docs.BusinessInfo(c.Context(), pageID)
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandlePut ghi đè thông tin doanh nghiệp của một trang đã biết
func (h *MetaBusinessHandler) HandlePut(c fiber.Ctx) error {
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
		fields := map[string]interface{}{}
		if err := json.Unmarshal(c.Body(), &fields); err != nil {
			h.HandleResponse(c, nil, common.NewError(common.ErrCodeValidationFormat, common.MsgValidationError, common.StatusBadRequest, err.Error()))
			return nil
		}
		if err := h.docs.SetBusinessInfo(c.Context(), pageID, fields); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		logger.LogAction("meta.business.update", c, pageID, map[string]interface{}{"fields": len(fields)})
		h.HandleResponse(c, fields, nil)
		return nil
	})
}
