// Package store định nghĩa kho dữ liệu cục bộ của inbox (page, hội thoại, tin nhắn, người nhắn)
// và hàng đợi ghi tuần tự dùng chung cho mọi luồng đồng bộ.
package store

import (
	"context"

	"message_mate/internal/api/meta/models"
)

// Store là kho dữ liệu cục bộ. Lỗi "không tìm thấy" luôn là common.ErrNotFound,
// trùng khóa luôn là common.ErrDuplicate.
type Store interface {
	FindPage(ctx context.Context, pageID string) (models.MetaPage, error)
	// ListPages sắp xếp theo Position (thứ tự của lần list gần nhất)
	ListPages(ctx context.Context, activeOnly bool) ([]models.MetaPage, error)
	// SavePage upsert theo pageId
	SavePage(ctx context.Context, page *models.MetaPage) error

	FindConversation(ctx context.Context, conversationID string) (models.MetaConversation, error)
	FindConversationByCorrespondent(ctx context.Context, pageID, correspondentID string) (models.MetaConversation, error)
	// ListConversations sắp xếp updatedTime giảm dần
	ListConversations(ctx context.Context, pageID string) ([]models.MetaConversation, error)
	// SaveConversation upsert theo conversationId
	SaveConversation(ctx context.Context, conv *models.MetaConversation) error

	// InsertMessage trả về common.ErrDuplicate nếu messageId đã tồn tại
	InsertMessage(ctx context.Context, msg *models.MetaMessage) error
	FindMessage(ctx context.Context, messageID string) (models.MetaMessage, error)
	// ListMessages sắp xếp createdTime tăng dần, cùng thời điểm thì theo messageId
	ListMessages(ctx context.Context, conversationID string) ([]models.MetaMessage, error)
	// LastMessage trả về common.ErrNotFound nếu hội thoại chưa có tin nhắn
	LastMessage(ctx context.Context, conversationID string) (models.MetaMessage, error)
	SetDayStarter(ctx context.Context, messageID string, dayStarter bool) error
	// MarkConversationRead đánh dấu opened cho mọi tin chưa đọc, trả về số tin đã đổi
	MarkConversationRead(ctx context.Context, conversationID string) (int64, error)
	DeleteMessage(ctx context.Context, messageID string) (bool, error)
	CountUnread(ctx context.Context, pageID string) (int64, error)

	FindUser(ctx context.Context, userID string) (models.MetaUser, error)
	// SaveUser upsert theo userId
	SaveUser(ctx context.Context, user *models.MetaUser) error
}
