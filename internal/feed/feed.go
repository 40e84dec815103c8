// Package feed vận chuyển sự kiện tin nhắn realtime (LiveEvent) tới listener của từng trang.
package feed

import (
	"context"

	"message_mate/internal/api/meta/models"
)

// Handler xử lý một sự kiện; được gọi tuần tự theo thứ tự đến trong cùng một trang.
// Handler không được Unsubscribe chính trang của nó.
type Handler func(ctx context.Context, ev models.LiveEvent)

// Feed là luồng sự kiện có thể đăng ký theo trang.
// ctx của Subscribe chỉ dùng cho thao tác đăng ký; subscription sống tới khi Unsubscribe hoặc Close.
type Feed interface {
	Subscribe(ctx context.Context, pageID string, handler Handler) error
	Unsubscribe(pageID string) error
	Publish(ctx context.Context, ev models.LiveEvent) error
	Close() error
}
