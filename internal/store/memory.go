package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
)

// Memory là Store trong bộ nhớ, dùng cho STORE_DRIVER=memory và cho test.
type Memory struct {
	mu            sync.RWMutex
	pages         map[string]models.MetaPage
	conversations map[string]models.MetaConversation
	messages      map[string]models.MetaMessage
	users         map[string]models.MetaUser
}

// NewMemory tạo một Memory store rỗng
func NewMemory() *Memory {
	return &Memory{
		pages:         make(map[string]models.MetaPage),
		conversations: make(map[string]models.MetaConversation),
		messages:      make(map[string]models.MetaMessage),
		users:         make(map[string]models.MetaUser),
	}
}

var _ Store = (*Memory)(nil)

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func cloneMessage(m models.MetaMessage) models.MetaMessage {
	if m.Attachment != nil {
		a := *m.Attachment
		m.Attachment = &a
	}
	return m
}

func (s *Memory) FindPage(ctx context.Context, pageID string) (models.MetaPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[pageID]
	if !ok {
		return models.MetaPage{}, common.ErrNotFound
	}
	return p, nil
}

func (s *Memory) ListPages(ctx context.Context, activeOnly bool) ([]models.MetaPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.MetaPage, 0, len(s.pages))
	for _, p := range s.pages {
		if activeOnly && !p.Active {
			continue
		}
		result = append(result, p)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].PageId < result[j].PageId
	})
	return result, nil
}

func (s *Memory) SavePage(ctx context.Context, page *models.MetaPage) error {
	if page.PageId == "" {
		return common.ErrRequiredField
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowMillis()
	if existing, ok := s.pages[page.PageId]; ok {
		page.CreatedAt = existing.CreatedAt
	} else if page.CreatedAt == 0 {
		page.CreatedAt = now
	}
	page.UpdatedAt = now
	s.pages[page.PageId] = *page
	return nil
}

func (s *Memory) FindConversation(ctx context.Context, conversationID string) (models.MetaConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return models.MetaConversation{}, common.ErrNotFound
	}
	return c, nil
}

func (s *Memory) FindConversationByCorrespondent(ctx context.Context, pageID, correspondentID string) (models.MetaConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if correspondentID == "" {
		return models.MetaConversation{}, common.ErrNotFound
	}
	var found *models.MetaConversation
	for _, c := range s.conversations {
		if c.PageId != pageID || c.CorrespondentId != correspondentID {
			continue
		}
		// Nhiều hội thoại cùng correspondent (hiếm): lấy hội thoại cập nhật mới nhất
		if found == nil || c.UpdatedTime > found.UpdatedTime {
			cc := c
			found = &cc
		}
	}
	if found == nil {
		return models.MetaConversation{}, common.ErrNotFound
	}
	return *found, nil
}

func (s *Memory) ListConversations(ctx context.Context, pageID string) ([]models.MetaConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.MetaConversation, 0)
	for _, c := range s.conversations {
		if c.PageId == pageID {
			result = append(result, c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].UpdatedTime != result[j].UpdatedTime {
			return result[i].UpdatedTime > result[j].UpdatedTime
		}
		return result[i].ConversationId < result[j].ConversationId
	})
	return result, nil
}

func (s *Memory) SaveConversation(ctx context.Context, conv *models.MetaConversation) error {
	if conv.ConversationId == "" {
		return common.ErrRequiredField
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowMillis()
	if existing, ok := s.conversations[conv.ConversationId]; ok {
		conv.CreatedAt = existing.CreatedAt
	} else if conv.CreatedAt == 0 {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now
	s.conversations[conv.ConversationId] = *conv
	return nil
}

func (s *Memory) InsertMessage(ctx context.Context, msg *models.MetaMessage) error {
	if msg.MessageId == "" {
		return common.ErrRequiredField
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.MessageId]; ok {
		return common.ErrDuplicate
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = nowMillis()
	}
	s.messages[msg.MessageId] = cloneMessage(*msg)
	return nil
}

func (s *Memory) FindMessage(ctx context.Context, messageID string) (models.MetaMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[messageID]
	if !ok {
		return models.MetaMessage{}, common.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (s *Memory) ListMessages(ctx context.Context, conversationID string) ([]models.MetaMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.MetaMessage, 0)
	for _, m := range s.messages {
		if m.ConversationId == conversationID {
			result = append(result, cloneMessage(m))
		}
	}
	SortMessages(result)
	return result, nil
}

func (s *Memory) LastMessage(ctx context.Context, conversationID string) (models.MetaMessage, error) {
	msgs, err := s.ListMessages(ctx, conversationID)
	if err != nil {
		return models.MetaMessage{}, err
	}
	if len(msgs) == 0 {
		return models.MetaMessage{}, common.ErrNotFound
	}
	return msgs[len(msgs)-1], nil
}

func (s *Memory) SetDayStarter(ctx context.Context, messageID string, dayStarter bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return common.ErrNotFound
	}
	m.DayStarter = dayStarter
	s.messages[messageID] = m
	return nil
}

func (s *Memory) MarkConversationRead(ctx context.Context, conversationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, m := range s.messages {
		if m.ConversationId == conversationID && !m.Opened {
			m.Opened = true
			s.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (s *Memory) DeleteMessage(ctx context.Context, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[messageID]; !ok {
		return false, nil
	}
	delete(s.messages, messageID)
	return true, nil
}

func (s *Memory) CountUnread(ctx context.Context, pageID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.messages {
		if m.PageId == pageID && !m.Opened {
			n++
		}
	}
	return n, nil
}

func (s *Memory) FindUser(ctx context.Context, userID string) (models.MetaUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return models.MetaUser{}, common.ErrNotFound
	}
	return u, nil
}

func (s *Memory) SaveUser(ctx context.Context, user *models.MetaUser) error {
	if user.UserId == "" {
		return common.ErrRequiredField
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user.UpdatedAt = nowMillis()
	s.users[user.UserId] = *user
	return nil
}

// SortMessages sắp xếp tăng dần theo createdTime, hòa thì theo messageId
func SortMessages(msgs []models.MetaMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedTime != msgs[j].CreatedTime {
			return msgs[i].CreatedTime < msgs[j].CreatedTime
		}
		return msgs[i].MessageId < msgs[j].MessageId
	})
}
