package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MetaConversation là một cuộc hội thoại Messenger hoặc Instagram Direct của một trang.
type MetaConversation struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ConversationId  string             `json:"conversationId" bson:"conversationId" index:"unique"`                                  // ID trên Graph API
	PageId          string             `json:"pageId" bson:"pageId" index:"single:1,compound:idx_page_correspondent"`                 // Trang sở hữu
	Platform        Platform           `json:"platform" bson:"platform"`                                                              // facebook | instagram
	UpdatedTime     int64              `json:"updatedTime" bson:"updatedTime"`                                                        // updated_time từ Graph (ms)
	LastRefresh     int64              `json:"lastRefresh" bson:"lastRefresh"`                                                        // Watermark, 0 = chưa refresh
	InDayRange      bool               `json:"inDayRange" bson:"inDayRange"`                                                          // Trong cửa sổ ngày gần đây
	CorrespondentId string             `json:"correspondentId" bson:"correspondentId" index:"compound:idx_page_correspondent"`        // FK → MetaUser.userId, rỗng = chưa resolve
	CreatedAt       int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt       int64              `json:"updatedAt" bson:"updatedAt"`
}

// NeedsRefresh: chỉ fetch tin nhắn khi còn trong cửa sổ ngày và có cập nhật sau watermark
func (c *MetaConversation) NeedsRefresh() bool {
	return c.InDayRange && c.UpdatedTime > c.LastRefresh
}
