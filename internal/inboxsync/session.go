package inboxsync

import (
	"context"
	"sync"

	"message_mate/internal/logger"
)

// Session là trạng thái của một phiên đồng bộ: người dùng, trang đang chọn và bộ đếm chưa đọc.
// Mỗi Engine có một Session riêng.
type Session struct {
	userID string
	unread UnreadCounter

	mu       sync.RWMutex
	selected string
}

// NewSession tạo Session cho userID
func NewSession(userID string, unread UnreadCounter) *Session {
	if unread == nil {
		unread = NewMemoryCounter()
	}
	return &Session{userID: userID, unread: unread}
}

// UserID trả về người dùng của phiên
func (s *Session) UserID() string { return s.userID }

// Selected trả về pageId đang chọn ("" = chưa chọn)
func (s *Session) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *Session) setSelected(pageID string) (previous string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, s.selected = s.selected, pageID
	return previous
}

// Unread trả về số tin chưa đọc của phiên
func (s *Session) Unread(ctx context.Context) (int64, error) {
	return s.unread.Get(ctx, s.userID)
}

func (s *Session) addUnread(ctx context.Context, n int64) {
	if n == 0 {
		return
	}
	if _, err := s.unread.Incr(ctx, s.userID, n); err != nil {
		logger.WithModule("session").WithError(err).Warn("📬 [UNREAD] Không tăng được bộ đếm")
	}
}

func (s *Session) readUnread(ctx context.Context, n int64) {
	if n == 0 {
		return
	}
	if _, err := s.unread.Decr(ctx, s.userID, n); err != nil {
		logger.WithModule("session").WithError(err).Warn("📬 [UNREAD] Không giảm được bộ đếm")
	}
}

func (s *Session) resetUnread(ctx context.Context, n int64) {
	if err := s.unread.Set(ctx, s.userID, n); err != nil {
		logger.WithModule("session").WithError(err).Warn("📬 [UNREAD] Không đặt lại được bộ đếm")
	}
}
