package inboxsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// UnreadCounter là bộ đếm tin chưa đọc theo người dùng của phiên
type UnreadCounter interface {
	Incr(ctx context.Context, userID string, n int64) (int64, error)
	// Decr không bao giờ đưa bộ đếm xuống dưới 0
	Decr(ctx context.Context, userID string, n int64) (int64, error)
	Get(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, n int64) error
}

// MemoryCounter là UnreadCounter trong bộ nhớ
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryCounter tạo MemoryCounter
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

func (c *MemoryCounter) Incr(ctx context.Context, userID string, n int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[userID] += n
	return c.counts[userID], nil
}

func (c *MemoryCounter) Decr(ctx context.Context, userID string, n int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.counts[userID] - n
	if v < 0 {
		v = 0
	}
	c.counts[userID] = v
	return v, nil
}

func (c *MemoryCounter) Get(ctx context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[userID], nil
}

func (c *MemoryCounter) Set(ctx context.Context, userID string, n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[userID] = n
	return nil
}

// decrFloorScript giảm nhưng chặn ở 0, chạy nguyên tử trên Redis
var decrFloorScript = redis.NewScript(`
local v = redis.call("DECRBY", KEYS[1], ARGV[1])
if v < 0 then
  redis.call("SET", KEYS[1], 0)
  return 0
end
return v
`)

// RedisCounter lưu bộ đếm trên Redis để nhiều instance dùng chung
type RedisCounter struct {
	client redis.UniversalClient
	prefix string
}

// DefaultUnreadPrefix là prefix key mặc định, key đầy đủ là "{prefix}:{userID}"
const DefaultUnreadPrefix = "message_mate:unread"

// NewRedisCounter tạo RedisCounter với prefix key (không có dấu ":" ở cuối)
func NewRedisCounter(client redis.UniversalClient, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = DefaultUnreadPrefix
	}
	return &RedisCounter{client: client, prefix: prefix}
}

func (c *RedisCounter) key(userID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, userID)
}

func (c *RedisCounter) Incr(ctx context.Context, userID string, n int64) (int64, error) {
	return c.client.IncrBy(ctx, c.key(userID), n).Result()
}

func (c *RedisCounter) Decr(ctx context.Context, userID string, n int64) (int64, error) {
	return decrFloorScript.Run(ctx, c.client, []string{c.key(userID)}, n).Int64()
}

func (c *RedisCounter) Get(ctx context.Context, userID string) (int64, error) {
	v, err := c.client.Get(ctx, c.key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *RedisCounter) Set(ctx context.Context, userID string, n int64) error {
	return c.client.Set(ctx, c.key(userID), n, 0).Err()
}
