package graph

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/parser"
)

// ConversationSummary là một hội thoại trong danh sách của trang
type ConversationSummary struct {
	ID          string
	UpdatedTime time.Time
	InDayRange  bool
}

// ConversationQuery là tùy chọn lọc khi list hội thoại
type ConversationQuery struct {
	UserID string // Chỉ lấy hội thoại với người này (user_id=)
}

// InDayRange: updatedTime nằm trong cửa sổ recencyDays tính từ now
func InDayRange(now, updated time.Time, recencyDays int) bool {
	return now.Sub(updated) < time.Duration(recencyDays)*24*time.Hour
}

// FetchConversations liệt kê hội thoại của trang trên một nền tảng.
// Phần tử thiếu id / updated_time bị bỏ qua. Lỗi HTTP trả về phần đã lấy được (có thể rỗng) kèm lỗi;
// caller coi đó là "không có thay đổi", không bao giờ là xóa.
func (c *Client) FetchConversations(ctx context.Context, pageID, accessToken string, platform models.Platform, query ConversationQuery) ([]ConversationSummary, error) {
	params := tokenParams(accessToken)
	params.Set("platform", platform.GraphParam())
	params.Set("fields", "id,updated_time")
	if query.UserID != "" {
		params.Set("user_id", query.UserID)
	}

	now := c.now()
	result := []ConversationSummary{}
	for i := 0; i < c.cfg.MaxPages; i++ {
		data, err := c.get(ctx, pageID+"/conversations", params)
		if err != nil {
			return result, err
		}
		doc := gjson.ParseBytes(data)
		doc.Get("data").ForEach(func(_, item gjson.Result) bool {
			id := item.Get("id").String()
			updated, ok := parser.ParseGraphTime(item.Get("updated_time").String())
			if id == "" || !ok {
				c.log.WithField("raw", item.Raw).Debug("🌐 [GRAPH] Bỏ qua hội thoại thiếu id/updated_time")
				return true
			}
			result = append(result, ConversationSummary{
				ID:          id,
				UpdatedTime: updated,
				InDayRange:  InDayRange(now, updated, c.cfg.RecencyDays),
			})
			return true
		})

		after := nextCursor(doc)
		if after == "" {
			break
		}
		params.Set("after", after)
	}
	return result, nil
}
