package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttachmentKind là loại đính kèm duy nhất của một tin nhắn
type AttachmentKind string

const (
	AttachmentImage        AttachmentKind = "image"
	AttachmentVideo        AttachmentKind = "video"
	AttachmentStoryMention AttachmentKind = "story_mention"
	AttachmentStoryReply   AttachmentKind = "story_reply"
)

// MessageAttachment là đính kèm (ảnh, video, story mention, story reply)
type MessageAttachment struct {
	Kind    AttachmentKind `json:"kind" bson:"kind"`
	URL     string         `json:"url" bson:"url"`
	StoryId string         `json:"storyId,omitempty" bson:"storyId,omitempty"`
}

// MetaMessage là một tin nhắn riêng lẻ; MessageId là khóa chống trùng.
type MetaMessage struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MessageId      string             `json:"messageId" bson:"messageId" index:"unique"`
	ConversationId string             `json:"conversationId" bson:"conversationId" index:"compound:idx_conversation_time"`
	PageId         string             `json:"pageId" bson:"pageId"`
	Text           string             `json:"text" bson:"text"`
	FromId         string             `json:"fromId" bson:"fromId"` // FK → MetaUser.userId hoặc page/business id
	ToId           string             `json:"toId" bson:"toId"`
	CreatedTime    int64              `json:"createdTime" bson:"createdTime" index:"compound:idx_conversation_time"` // ms
	Opened         bool               `json:"opened" bson:"opened"`
	DayStarter     bool               `json:"dayStarter" bson:"dayStarter"`
	Attachment     *MessageAttachment `json:"attachment,omitempty" bson:"attachment,omitempty"`
	CreatedAt      int64              `json:"createdAt" bson:"createdAt"`
}
