package feed

import (
	"context"
	"sync"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/logger"
)

// Hub là Feed trong tiến trình: mỗi trang có một channel có buffer và một goroutine xử lý tuần tự.
// Webhook handler Publish vào Hub.
type Hub struct {
	buffer int

	mu     sync.Mutex
	subs   map[string]*hubSub
	closed bool
}

type hubSub struct {
	events chan models.LiveEvent
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub tạo Hub; buffer là số sự kiện chờ tối đa mỗi trang
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 256
	}
	return &Hub{buffer: buffer, subs: make(map[string]*hubSub)}
}

var _ Feed = (*Hub)(nil)

func (h *Hub) Subscribe(ctx context.Context, pageID string, handler Handler) error {
	if pageID == "" || handler == nil {
		return common.ErrRequiredField
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return common.ErrFeedSubscription
	}
	old := h.subs[pageID]
	runCtx, cancel := context.WithCancel(context.Background())
	sub := &hubSub{events: make(chan models.LiveEvent, h.buffer), cancel: cancel, done: make(chan struct{})}
	h.subs[pageID] = sub
	h.mu.Unlock()

	if old != nil {
		old.stop()
	}
	go sub.run(runCtx, pageID, handler)
	return nil
}

func (s *hubSub) run(ctx context.Context, pageID string, handler Handler) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.WithPage("feed", pageID).WithField("panic", r).Error("📡 [FEED] Handler panic recovered")
					}
				}()
				handler(ctx, ev)
			}()
		}
	}
}

func (s *hubSub) stop() {
	s.cancel()
	<-s.done
}

func (h *Hub) Unsubscribe(pageID string) error {
	h.mu.Lock()
	sub := h.subs[pageID]
	delete(h.subs, pageID)
	h.mu.Unlock()
	if sub != nil {
		sub.stop()
	}
	return nil
}

// Publish chuyển sự kiện tới trang đăng ký; trang chưa đăng ký thì sự kiện bị bỏ
func (h *Hub) Publish(ctx context.Context, ev models.LiveEvent) error {
	h.mu.Lock()
	sub := h.subs[ev.RoutingKey()]
	h.mu.Unlock()
	if sub == nil {
		logger.WithPage("feed", ev.RoutingKey()).WithField("message_id", ev.MessageId).Debug("📡 [FEED] Không có subscriber, bỏ sự kiện")
		return nil
	}
	select {
	case sub.events <- ev:
		return nil
	case <-sub.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]*hubSub)
	h.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
	return nil
}
