package inboxsync

import (
	"context"
	"time"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/generation"
	"message_mate/internal/graph"
)

// GraphAPI là phần Graph client Engine sử dụng (graph.Client)
type GraphAPI interface {
	ListPages(ctx context.Context, userToken string) ([]graph.PageSummary, error)
	ResolveBusinessAccount(ctx context.Context, pageID, pageToken string) (string, error)
	SubscribeApp(ctx context.Context, pageID, pageToken string) error
	FetchConversations(ctx context.Context, pageID, accessToken string, platform models.Platform, query graph.ConversationQuery) ([]graph.ConversationSummary, error)
	FetchMessages(ctx context.Context, conversationID, accessToken string, platform models.Platform, since *time.Time, cursor string) (graph.MessageBatch, error)
	FetchProfile(ctx context.Context, userID, pageToken string, platform models.Platform) (graph.Profile, error)
	SendMessage(ctx context.Context, pageID, pageToken, recipientID, text string) (graph.SendResult, error)
}

// Generator là dịch vụ sinh câu trả lời (generation.Client)
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
}

// PageMirror ghi bản sao trang sang document store (docstore.Store)
type PageMirror interface {
	MirrorPage(ctx context.Context, page models.MetaPage) error
}

var _ GraphAPI = (*graph.Client)(nil)
