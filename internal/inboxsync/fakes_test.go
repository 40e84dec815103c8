package inboxsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/feed"
	"message_mate/internal/graph"
	"message_mate/internal/identity"
	"message_mate/internal/store"
)

// fakeGraph trả dữ liệu dựng sẵn theo id, đếm số lời gọi
type fakeGraph struct {
	mu            sync.Mutex
	pages         []graph.PageSummary
	business      map[string]string
	conversations map[models.Platform][]graph.ConversationSummary
	byUser        map[string][]graph.ConversationSummary
	messages      map[string][]graph.MessageBatch // theo conversationId, mỗi phần tử một trang cursor
	failFetch     map[string]error
	authFailures  int // số lần ListPages / FetchConversations trả lỗi token trước khi thành công
	subscribed    []string
	sent          []string
	fetchCalls    map[string]int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		business:      map[string]string{},
		conversations: map[models.Platform][]graph.ConversationSummary{},
		byUser:        map[string][]graph.ConversationSummary{},
		messages:      map[string][]graph.MessageBatch{},
		failFetch:     map[string]error{},
		fetchCalls:    map[string]int{},
	}
}

func (f *fakeGraph) ListPages(ctx context.Context, userToken string) ([]graph.PageSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authFailures > 0 {
		f.authFailures--
		return nil, common.ErrGraphAuth
	}
	return append([]graph.PageSummary(nil), f.pages...), nil
}

func (f *fakeGraph) ResolveBusinessAccount(ctx context.Context, pageID, pageToken string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.business[pageID], nil
}

func (f *fakeGraph) SubscribeApp(ctx context.Context, pageID, pageToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, pageID)
	return nil
}

func (f *fakeGraph) FetchConversations(ctx context.Context, pageID, accessToken string, platform models.Platform, query graph.ConversationQuery) ([]graph.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if query.UserID != "" {
		return f.byUser[query.UserID], nil
	}
	return f.conversations[platform], nil
}

func (f *fakeGraph) FetchMessages(ctx context.Context, conversationID, accessToken string, platform models.Platform, since *time.Time, cursor string) (graph.MessageBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls[conversationID]++
	if err := f.failFetch[conversationID]; err != nil {
		return graph.MessageBatch{}, err
	}
	pages := f.messages[conversationID]
	idx := 0
	if cursor != "" {
		for i := range pages {
			if pages[i].Paging != nil && pages[i].Paging.After == cursor {
				idx = i + 1
			}
		}
	}
	if idx >= len(pages) {
		return graph.MessageBatch{}, nil
	}
	return pages[idx], nil
}

func (f *fakeGraph) FetchProfile(ctx context.Context, userID, pageToken string, platform models.Platform) (graph.Profile, error) {
	return graph.Profile{ID: userID, Name: "Profile " + userID, PictureURL: "https://cdn.example/" + userID}, nil
}

func (f *fakeGraph) SendMessage(ctx context.Context, pageID, pageToken, recipientID, text string) (graph.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return graph.SendResult{RecipientID: recipientID, MessageID: "m_sent_" + text}, nil
}

func (f *fakeGraph) calls(conversationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls[conversationID]
}

type harness struct {
	store  *store.Memory
	queue  *store.WriteQueue
	hub    *feed.Hub
	graph  *fakeGraph
	engine *Engine
}

func newHarness(t *testing.T, policy OrphanPolicy) *harness {
	t.Helper()
	h := &harness{
		store: store.NewMemory(),
		queue: store.NewWriteQueue(16),
		hub:   feed.NewHub(16),
		graph: newFakeGraph(),
	}
	h.engine = NewEngine(Deps{
		Store:  h.store,
		Queue:  h.queue,
		Graph:  h.graph,
		Tokens: identity.NewStatic("owner", "user-token"),
		Feed:   h.hub,
		Unread: NewMemoryCounter(),
	}, Options{Concurrency: 3, OrphanPolicy: policy, Location: time.UTC})
	t.Cleanup(func() {
		h.engine.Close()
		_ = h.hub.Close()
		h.queue.Close()
	})
	return h
}

func (h *harness) seedPage(t *testing.T, page models.MetaPage) {
	t.Helper()
	if err := h.store.SavePage(context.Background(), &page); err != nil {
		t.Fatalf("seed page: %v", err)
	}
}

func (h *harness) seedConversation(t *testing.T, conv models.MetaConversation) {
	t.Helper()
	if err := h.store.SaveConversation(context.Background(), &conv); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
}

func at(day, hour int) time.Time {
	return time.Date(2024, time.March, day, hour, 0, 0, 0, time.UTC)
}
