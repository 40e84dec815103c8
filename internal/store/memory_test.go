package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
)

func TestMemoryMessages(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.InsertMessage(ctx, &models.MetaMessage{MessageId: "m2", ConversationId: "c1", PageId: "p1", CreatedTime: 200}))
	require.NoError(t, s.InsertMessage(ctx, &models.MetaMessage{MessageId: "m1", ConversationId: "c1", PageId: "p1", CreatedTime: 100, Opened: true}))
	err := s.InsertMessage(ctx, &models.MetaMessage{MessageId: "m1", ConversationId: "c1"})
	assert.True(t, errors.Is(err, common.ErrDuplicate))

	msgs, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].MessageId)

	last, err := s.LastMessage(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "m2", last.MessageId)

	_, err = s.LastMessage(ctx, "c2")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	unread, _ := s.CountUnread(ctx, "p1")
	assert.Equal(t, int64(1), unread)
	n, _ := s.MarkConversationRead(ctx, "c1")
	assert.Equal(t, int64(1), n)
	unread, _ = s.CountUnread(ctx, "p1")
	assert.Equal(t, int64(0), unread)

	deleted, _ := s.DeleteMessage(ctx, "m2")
	assert.True(t, deleted)
	deleted, _ = s.DeleteMessage(ctx, "m2")
	assert.False(t, deleted)
}

func TestMemoryPagesAndConversations(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.SavePage(ctx, &models.MetaPage{PageId: "b", Active: true, Position: 1}))
	require.NoError(t, s.SavePage(ctx, &models.MetaPage{PageId: "a", Active: false, Position: 0}))
	require.NoError(t, s.SavePage(ctx, &models.MetaPage{PageId: "c", Active: true, Position: 0}))

	active, _ := s.ListPages(ctx, true)
	require.Len(t, active, 2)
	assert.Equal(t, "c", active[0].PageId)

	require.NoError(t, s.SaveConversation(ctx, &models.MetaConversation{ConversationId: "t1", PageId: "c", CorrespondentId: "u1", UpdatedTime: 10}))
	require.NoError(t, s.SaveConversation(ctx, &models.MetaConversation{ConversationId: "t2", PageId: "c", UpdatedTime: 20}))

	conv, err := s.FindConversationByCorrespondent(ctx, "c", "u1")
	require.NoError(t, err)
	assert.Equal(t, "t1", conv.ConversationId)

	_, err = s.FindConversationByCorrespondent(ctx, "c", "")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	list, _ := s.ListConversations(ctx, "c")
	require.Len(t, list, 2)
	assert.Equal(t, "t2", list[0].ConversationId)
}

func TestWriteQueueSerializes(t *testing.T) {
	q := NewWriteQueue(4)
	defer q.Close()

	ctx := context.Background()
	counter := 0
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func() {
			_ = q.Do(ctx, func(context.Context) error {
				counter++ // chỉ goroutine ghi chạm vào biến này
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
	assert.Equal(t, 50, counter)

	boom := errors.New("boom")
	assert.Equal(t, boom, q.Do(ctx, func(context.Context) error { return boom }))
	assert.Error(t, q.Do(ctx, func(context.Context) error { panic("x") }))
}

func TestWriteQueueClosed(t *testing.T) {
	q := NewWriteQueue(1)
	q.Close()
	assert.ErrorIs(t, q.Do(context.Background(), func(context.Context) error { return nil }), ErrQueueClosed)
}
