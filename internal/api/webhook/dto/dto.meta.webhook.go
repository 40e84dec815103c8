// Package webhookdto định nghĩa payload webhook Messenger / Instagram của Meta.
package webhookdto

// MetaWebhookPayload là body POST webhook: object = "page" hoặc "instagram"
type MetaWebhookPayload struct {
	Object string             `json:"object"`
	Entry  []MetaWebhookEntry `json:"entry"`
}

// MetaWebhookEntry là một entry theo trang (id = page id hoặc id tài khoản Instagram business)
type MetaWebhookEntry struct {
	ID        string                 `json:"id"`
	Time      int64                  `json:"time"`
	Messaging []MetaWebhookMessaging `json:"messaging"`
}

// MetaWebhookParty là sender / recipient
type MetaWebhookParty struct {
	ID string `json:"id"`
}

// MetaWebhookMessaging là một sự kiện nhắn tin
type MetaWebhookMessaging struct {
	Sender    MetaWebhookParty    `json:"sender"`
	Recipient MetaWebhookParty    `json:"recipient"`
	Timestamp int64               `json:"timestamp"` // ms
	Message   *MetaWebhookMessage `json:"message,omitempty"`
}

type MetaWebhookMessage struct {
	Mid         string                  `json:"mid"`
	Text        string                  `json:"text,omitempty"`
	IsEcho      bool                    `json:"is_echo,omitempty"`
	IsDeleted   bool                    `json:"is_deleted,omitempty"`
	Attachments []MetaWebhookAttachment `json:"attachments,omitempty"`
	ReplyTo     *MetaWebhookReplyTo     `json:"reply_to,omitempty"`
}

// MetaWebhookAttachment là đính kèm: image, video, story_mention...
type MetaWebhookAttachment struct {
	Type    string                       `json:"type"`
	Payload MetaWebhookAttachmentPayload `json:"payload"`
}

type MetaWebhookAttachmentPayload struct {
	URL string `json:"url"`
}

// MetaWebhookReplyTo là tin được trả lời (story reply trên Instagram)
type MetaWebhookReplyTo struct {
	Mid   string            `json:"mid,omitempty"`
	Story *MetaWebhookStory `json:"story,omitempty"`
}

type MetaWebhookStory struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}
