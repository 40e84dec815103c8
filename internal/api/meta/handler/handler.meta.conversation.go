package metahdl

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	basehdl "message_mate/internal/api/base/handler"
	metadto "message_mate/internal/api/meta/dto"
	"message_mate/internal/common"
	"message_mate/internal/inboxsync"
	"message_mate/internal/logger"
	"message_mate/internal/store"
)

// MetaConversationHandler xử lý tin nhắn của một hội thoại
type MetaConversationHandler struct {
	*basehdl.BaseHandler
	engine *inboxsync.Engine
	store  store.Store
}

// NewMetaConversationHandler khởi tạo MetaConversationHandler
func NewMetaConversationHandler(engine *inboxsync.Engine, st store.Store) *MetaConversationHandler {
	return &MetaConversationHandler{BaseHandler: basehdl.NewBaseHandler(), engine: engine, store: st}
}

func (h *MetaConversationHandler) conversationID(c fiber.Ctx) (string, error) {
	id, err := h.RequireParam(c, "conversationId")
	if err != nil {
		return "", err
	}
	if _, err := h.store.FindConversation(c.Context(), id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrConversationNotFound
		}
		return "", err
	}
	return id, nil
}

// HandleListMessages trả về tin nhắn của hội thoại theo thời gian tăng dần
func (h *MetaConversationHandler) HandleListMessages(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.conversationID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		data, err := h.store.ListMessages(c.Context(), id)
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleSend gửi tin trả lời người nhắn
func (h *MetaConversationHandler) HandleSend(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.RequireParam(c, "conversationId")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		var input metadto.SendMessageInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		data, err := h.engine.SendMessage(c.Context(), id, input.Text)
		if err == nil {
			logger.LogAction("meta.message.send", c, id, map[string]interface{}{"length": len(input.Text)})
		}
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleMarkRead đánh dấu đã đọc toàn bộ tin của hội thoại
func (h *MetaConversationHandler) HandleMarkRead(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.RequireParam(c, "conversationId")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		marked, err := h.engine.MarkRead(c.Context(), id)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		logger.LogAction("meta.conversation.read", c, id, map[string]interface{}{"marked": marked})
		unread, err := h.engine.Unread(c.Context())
		h.HandleResponse(c, metadto.MarkReadOutput{Marked: marked, Unread: unread}, err)
		return nil
	})
}

// HandleGenerate gọi dịch vụ sinh câu trả lời; header Authorization được chuyển tiếp
func (h *MetaConversationHandler) HandleGenerate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := h.RequireParam(c, "conversationId")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		var input metadto.GenerateInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		message, err := h.engine.Generate(c.Context(), id, input.ResponseType, c.Get("Authorization"))
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		h.HandleResponse(c, metadto.GenerateOutput{Message: message}, nil)
		return nil
	})
}

// HandleUnread trả về bộ đếm tin chưa đọc của phiên
func (h *MetaConversationHandler) HandleUnread(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		n, err := h.engine.Unread(c.Context())
		h.HandleResponse(c, metadto.UnreadOutput{UserId: h.engine.Session().UserID(), Unread: n}, err)
		return nil
	})
}
