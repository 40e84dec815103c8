// Package parser chuyển payload chi tiết tin nhắn của Graph API thành bản ghi chuẩn hóa.
// Payload không hợp lệ không bao giờ là lỗi: Parse trả về (nil, false) và tin nhắn bị bỏ qua.
package parser

import (
	"time"

	"github.com/tidwall/gjson"

	"message_mate/internal/api/meta/models"
)

// Participant là một bên của tin nhắn (from / to)
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// ParsedMessage là tin nhắn đã chuẩn hóa, chưa lưu
type ParsedMessage struct {
	ID          string
	Text        string
	From        Participant
	To          Participant
	CreatedTime time.Time
	Attachment  *models.MessageAttachment // Tối đa một đính kèm
	DayStarter  bool
}

// Parser phân tích payload chi tiết của một tin nhắn theo nền tảng
type Parser interface {
	Platform() models.Platform
	Parse(raw []byte, id string, createdTime string) (*ParsedMessage, bool)
}

// ForPlatform chọn parser theo nền tảng, mặc định Facebook
func ForPlatform(p models.Platform) Parser {
	if p == models.PlatformInstagram {
		return instagramParser{}
	}
	return facebookParser{}
}

// graphTimeLayouts là các định dạng created_time / updated_time Graph trả về
var graphTimeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

// ParseGraphTime đọc thời gian theo định dạng Graph
func ParseGraphTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range graphTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// envelope là phần chung của hai biến thể: kiểm tra JSON, thời gian, from và đúng một to
type envelope struct {
	doc     gjson.Result
	from    gjson.Result
	to      gjson.Result
	created time.Time
}

func openEnvelope(raw []byte, id, createdTime string) (envelope, bool) {
	if id == "" || !gjson.ValidBytes(raw) {
		return envelope{}, false
	}
	created, ok := ParseGraphTime(createdTime)
	if !ok {
		return envelope{}, false
	}

	doc := gjson.ParseBytes(raw)
	from := doc.Get("from")
	if !from.IsObject() || from.Get("id").String() == "" {
		return envelope{}, false
	}

	recipients := doc.Get("to.data")
	if !recipients.IsArray() {
		return envelope{}, false
	}
	list := recipients.Array()
	if len(list) != 1 || list[0].Get("id").String() == "" {
		return envelope{}, false
	}

	return envelope{doc: doc, from: from, to: list[0], created: created}, true
}

// mediaAttachment lấy ảnh hoặc video từ attachments.data[0], ảnh ưu tiên hơn video
func mediaAttachment(doc gjson.Result) *models.MessageAttachment {
	first := doc.Get("attachments.data.0")
	if !first.Exists() {
		return nil
	}
	if url := first.Get("image_data.url").String(); url != "" {
		return &models.MessageAttachment{Kind: models.AttachmentImage, URL: url}
	}
	if url := first.Get("video_data.url").String(); url != "" {
		return &models.MessageAttachment{Kind: models.AttachmentVideo, URL: url}
	}
	return nil
}

// finish áp quy tắc "có text hoặc đính kèm" và dựng ParsedMessage
func (e envelope) finish(id string, from, to Participant, attachment *models.MessageAttachment) (*ParsedMessage, bool) {
	text := e.doc.Get("message").String()
	if text == "" && attachment == nil {
		return nil, false
	}
	return &ParsedMessage{
		ID:          id,
		Text:        text,
		From:        from,
		To:          to,
		CreatedTime: e.created,
		Attachment:  attachment,
	}, true
}
