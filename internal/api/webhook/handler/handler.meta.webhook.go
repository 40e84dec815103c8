// Package webhookhdl nhận webhook Messenger / Instagram của Meta và đẩy sự kiện vào feed realtime.
package webhookhdl

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	basehdl "message_mate/internal/api/base/handler"
	"message_mate/internal/api/meta/models"
	webhookdto "message_mate/internal/api/webhook/dto"
	"message_mate/internal/common"
	"message_mate/internal/logger"
)

// Publisher đẩy sự kiện vào feed (feed.Feed thỏa interface này)
type Publisher interface {
	Publish(ctx context.Context, ev models.LiveEvent) error
}

// PageResolver đổi id trong entry (page id hoặc id Instagram business) thành page id
type PageResolver interface {
	ResolvePageID(ctx context.Context, id string) (string, error)
}

// MetaWebhookHandler xử lý webhook của Meta
type MetaWebhookHandler struct {
	*basehdl.BaseHandler
	publisher   Publisher
	resolver    PageResolver
	appSecret   string
	verifyToken string
}

// NewMetaWebhookHandler tạo handler; appSecret rỗng thì bỏ qua kiểm tra chữ ký
func NewMetaWebhookHandler(publisher Publisher, resolver PageResolver, appSecret, verifyToken string) *MetaWebhookHandler {
	return &MetaWebhookHandler{
		BaseHandler: basehdl.NewBaseHandler(),
		publisher:   publisher,
		resolver:    resolver,
		appSecret:   appSecret,
		verifyToken: verifyToken,
	}
}

// HandleVerify trả về hub.challenge khi hub.verify_token khớp
func (h *MetaWebhookHandler) HandleVerify(c fiber.Ctx) error {
	if c.Query("hub.mode") != "subscribe" || h.verifyToken == "" || c.Query("hub.verify_token") != h.verifyToken {
		logger.WithRequest(c).Warn("🔔 [META WEBHOOK] Verify token không khớp")
		return c.Status(common.StatusForbidden).SendString("forbidden")
	}
	return c.Status(common.StatusOK).SendString(c.Query("hub.challenge"))
}

// ValidSignature kiểm tra header X-Hub-Signature-256 = "sha256=" + hex(HMAC-SHA256(secret, body))
func ValidSignature(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	expected, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// HandleEvent nhận payload, chuyển thành LiveEvent và publish.
// Payload hợp lệ luôn được trả 200 để Meta không gửi lại; sự kiện không áp dụng được sẽ bị listener bỏ.
func (h *MetaWebhookHandler) HandleEvent(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		log := logger.WithRequest(c)
		body := c.Body()

		if h.appSecret != "" && !ValidSignature(h.appSecret, body, c.Get("X-Hub-Signature-256")) {
			log.Warn("🔔 [META WEBHOOK] Chữ ký không hợp lệ")
			h.HandleResponse(c, nil, common.NewError(common.ErrCodeAuth, "Chữ ký webhook không hợp lệ", common.StatusUnauthorized, nil))
			return nil
		}

		var payload webhookdto.MetaWebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			h.HandleResponse(c, nil, common.NewError(common.ErrCodeValidationFormat, common.MsgValidationError, common.StatusBadRequest, err.Error()))
			return nil
		}
		if payload.Object != "page" && payload.Object != "instagram" {
			h.HandleResponse(c, fiber.Map{"published": 0}, nil)
			return nil
		}

		published := 0
		for _, entry := range payload.Entry {
			pageID := entry.ID
			if h.resolver != nil {
				if resolved, err := h.resolver.ResolvePageID(c.Context(), entry.ID); err == nil {
					pageID = resolved
				} else {
					log.WithError(err).WithField("entry_id", entry.ID).Debug("🔔 [META WEBHOOK] Không tìm được trang cho entry")
				}
			}
			for _, ev := range ToLiveEvents(pageID, entry) {
				if err := h.publisher.Publish(c.Context(), ev); err != nil {
					log.WithError(err).WithField("message_id", ev.MessageId).Error("🔔 [META WEBHOOK] Không publish được sự kiện")
					continue
				}
				published++
			}
		}

		log.WithFields(logrus.Fields{"object": payload.Object, "published": published}).Debug("🔔 [META WEBHOOK] Đã nhận webhook")
		h.HandleResponse(c, fiber.Map{"published": published}, nil)
		return nil
	})
}

// ToLiveEvents chuyển các messaging của một entry thành LiveEvent.
// Echo vẫn được chuyển (listener bỏ qua theo sender); messaging không có message bị bỏ.
func ToLiveEvents(pageID string, entry webhookdto.MetaWebhookEntry) []models.LiveEvent {
	events := make([]models.LiveEvent, 0, len(entry.Messaging))
	for _, m := range entry.Messaging {
		if m.Message == nil || m.Message.Mid == "" {
			continue
		}
		ev := models.LiveEvent{
			PageId:      pageID,
			SenderId:    m.Sender.ID,
			RecipientId: m.Recipient.ID,
			MessageId:   m.Message.Mid,
			CreatedTime: m.Timestamp,
			Text:        m.Message.Text,
			IsDeleted:   m.Message.IsDeleted,
		}
		if entry.ID != pageID {
			ev.BusinessId = entry.ID
		}
		if ev.CreatedTime == 0 {
			ev.CreatedTime = entry.Time
		}

		// tối đa một URL: ảnh > story mention > story reply
		for _, a := range m.Message.Attachments {
			if a.Type == "image" && a.Payload.URL != "" {
				ev.ImageURL = a.Payload.URL
				break
			}
		}
		if ev.ImageURL == "" {
			for _, a := range m.Message.Attachments {
				if a.Type == "story_mention" && a.Payload.URL != "" {
					ev.StoryMentionURL = a.Payload.URL
					break
				}
			}
		}
		if ev.ImageURL == "" && ev.StoryMentionURL == "" && m.Message.ReplyTo != nil && m.Message.ReplyTo.Story != nil {
			ev.StoryReplyURL = m.Message.ReplyTo.Story.URL
		}
		events = append(events, ev)
	}
	return events
}
