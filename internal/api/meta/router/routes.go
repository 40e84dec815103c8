// Package router đăng ký các route thuộc domain Meta: trang, hội thoại, tin nhắn, thông tin doanh nghiệp.
package router

import (
	"github.com/gofiber/fiber/v3"

	metahdl "message_mate/internal/api/meta/handler"
	apirouter "message_mate/internal/api/router"
)

// Handlers gom các handler của domain Meta
type Handlers struct {
	Page         *metahdl.MetaPageHandler
	Conversation *metahdl.MetaConversationHandler
	Business     *metahdl.MetaBusinessHandler // nil = không có document store
}

// Register trả về hàm đăng ký route Meta lên v1. auth được gắn một lần cho mỗi group.
func Register(h Handlers, auth fiber.Handler) apirouter.RegisterFunc {
	return func(v1 fiber.Router) error {
		page := v1.Group("/meta/page")
		page.Use(auth)
		page.Post("/refresh", h.Page.HandleRefreshPages)
		page.Get("/list", h.Page.HandleListPages)
		page.Get("/selected", h.Page.HandleSelectedPage)
		page.Put("/select/:pageId", h.Page.HandleSelectPage)
		page.Post("/:pageId/sync", h.Page.HandleSync)
		page.Get("/:pageId/sync-status", h.Page.HandleSyncStatus)
		page.Get("/:pageId/conversations", h.Page.HandleListConversations)
		if h.Business != nil {
			page.Get("/:pageId/business-information", h.Business.HandleGet)
			page.Put("/:pageId/business-information", h.Business.HandlePut)
		}

		conv := v1.Group("/meta/conversation")
		conv.Use(auth)
		conv.Get("/:conversationId/messages", h.Conversation.HandleListMessages)
		conv.Post("/:conversationId/send", h.Conversation.HandleSend)
		conv.Post("/:conversationId/read", h.Conversation.HandleMarkRead)
		conv.Post("/:conversationId/generate", h.Conversation.HandleGenerate)

		apirouter.RegisterRouteWithMiddleware(v1, "/meta/unread", "GET", "", []fiber.Handler{auth}, h.Conversation.HandleUnread)
		return nil
	}
}
