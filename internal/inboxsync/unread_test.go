package inboxsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCounterKey(t *testing.T) {
	c := NewRedisCounter(nil, DefaultUnreadPrefix)
	assert.Equal(t, "message_mate:unread:owner", c.key("owner"))
	assert.Equal(t, "message_mate:unread:owner", NewRedisCounter(nil, "").key("owner"))
}

func TestMemoryCounterDecrFloor(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCounter()
	_, err := c.Incr(ctx, "owner", 2)
	require.NoError(t, err)
	n, err := c.Decr(ctx, "owner", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
