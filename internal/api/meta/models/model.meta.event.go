package models

// LiveEvent là một sự kiện tin nhắn realtime từ push feed.
// Tối đa một trong các URL (ảnh, story mention, story reply) khác rỗng.
type LiveEvent struct {
	PageId          string `json:"pageId" firestore:"pageId"`
	BusinessId      string `json:"businessId,omitempty" firestore:"businessId"`
	SenderId        string `json:"senderId" firestore:"senderId"`
	RecipientId     string `json:"recipientId" firestore:"recipientId"`
	MessageId       string `json:"messageId" firestore:"messageId"`
	CreatedTime     int64  `json:"createdTime" firestore:"createdTime"` // ms
	Text            string `json:"text,omitempty" firestore:"text"`
	ImageURL        string `json:"imageUrl,omitempty" firestore:"imageUrl"`
	StoryMentionURL string `json:"storyMentionUrl,omitempty" firestore:"storyMentionUrl"`
	StoryReplyURL   string `json:"storyReplyUrl,omitempty" firestore:"storyReplyUrl"`
	IsDeleted       bool   `json:"isDeleted,omitempty" firestore:"isDeleted"`
}

// Attachment dựng đính kèm từ các URL loại trừ nhau (ảnh > story mention > story reply)
func (e *LiveEvent) Attachment() *MessageAttachment {
	switch {
	case e.ImageURL != "":
		return &MessageAttachment{Kind: AttachmentImage, URL: e.ImageURL}
	case e.StoryMentionURL != "":
		return &MessageAttachment{Kind: AttachmentStoryMention, URL: e.StoryMentionURL}
	case e.StoryReplyURL != "":
		return &MessageAttachment{Kind: AttachmentStoryReply, URL: e.StoryReplyURL}
	}
	return nil
}

// RoutingKey là page nhận sự kiện (page id, fallback business id)
func (e *LiveEvent) RoutingKey() string {
	if e.PageId != "" {
		return e.PageId
	}
	return e.BusinessId
}
