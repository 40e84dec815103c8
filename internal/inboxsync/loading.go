package inboxsync

import (
	"sync/atomic"

	"message_mate/internal/registry"
)

// loadTracker đếm số việc còn dở theo trang; trang "đang tải" khi bộ đếm > 0.
// Mỗi hội thoại được xét giảm bộ đếm đúng một lần, dù có fetch tin nhắn hay không.
type loadTracker struct {
	counters *registry.Registry[*atomic.Int64]
}

func newLoadTracker() *loadTracker {
	return &loadTracker{counters: registry.NewRegistry[*atomic.Int64]()}
}

func (t *loadTracker) counter(pageID string) *atomic.Int64 {
	c, _ := t.counters.GetOrCreate(pageID, func() (*atomic.Int64, error) {
		return new(atomic.Int64), nil
	})
	return c
}

func (t *loadTracker) add(pageID string, n int64) {
	t.counter(pageID).Add(n)
}

// done trả về true khi bộ đếm của trang về 0
func (t *loadTracker) done(pageID string) bool {
	return t.counter(pageID).Add(-1) == 0
}

func (t *loadTracker) loading(pageID string) bool {
	c, ok := t.counters.Get(pageID)
	return ok && c.Load() > 0
}
