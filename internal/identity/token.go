// Package identity cung cấp user id của phiên và access token hợp lệ cho Graph API.
package identity

import (
	"context"
	"sync"
	"time"

	"message_mate/internal/common"
	"message_mate/internal/logger"
)

// TokenSource trả về access token hợp lệ trước mỗi lời gọi Graph cần xác thực
type TokenSource interface {
	UserID() string
	GetValidAccessToken(ctx context.Context) (string, error)
	// Invalidate bỏ token hiện tại sau khi Graph báo hết hạn
	Invalidate()
}

// Exchanger đổi token ngắn hạn lấy long-lived token (graph.Client)
type Exchanger interface {
	ExchangeToken(ctx context.Context, shortLived string) (string, time.Duration, error)
}

// StaticTokenSource trả về một token cố định
type StaticTokenSource struct {
	userID string
	token  string
}

// NewStatic tạo StaticTokenSource
func NewStatic(userID, token string) *StaticTokenSource {
	return &StaticTokenSource{userID: userID, token: token}
}

func (s *StaticTokenSource) UserID() string { return s.userID }

func (s *StaticTokenSource) GetValidAccessToken(ctx context.Context) (string, error) {
	if s.token == "" {
		return "", common.ErrTokenMissing
	}
	return s.token, nil
}

func (s *StaticTokenSource) Invalidate() {}

// refreshMargin: đổi token trước khi hết hạn một khoảng
const refreshMargin = 10 * time.Minute

// ExchangingTokenSource giữ long-lived token, đổi lại khi gần hết hạn hoặc bị Invalidate
type ExchangingTokenSource struct {
	userID    string
	seed      string
	exchanger Exchanger
	now       func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewExchanging tạo ExchangingTokenSource từ user token ban đầu
func NewExchanging(userID, seed string, exchanger Exchanger) *ExchangingTokenSource {
	return &ExchangingTokenSource{userID: userID, seed: seed, exchanger: exchanger, now: time.Now}
}

func (s *ExchangingTokenSource) UserID() string { return s.userID }

func (s *ExchangingTokenSource) GetValidAccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && (s.expiresAt.IsZero() || s.now().Add(refreshMargin).Before(s.expiresAt)) {
		return s.token, nil
	}
	if s.seed == "" {
		return "", common.ErrTokenMissing
	}

	token, ttl, err := s.exchanger.ExchangeToken(ctx, s.seed)
	if err != nil {
		logger.WithModule("identity").WithError(err).Warn("🔑 [IDENTITY] Không đổi được long-lived token")
		return "", common.Wrap(common.ErrTokenExpired, err)
	}
	s.token = token
	s.expiresAt = time.Time{}
	if ttl > 0 {
		s.expiresAt = s.now().Add(ttl)
	}
	// long-lived token có thể đổi tiếp
	s.seed = token
	return token, nil
}

func (s *ExchangingTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}
