package inboxsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/graph"
	"message_mate/internal/parser"
)

func liveEvent(id, sender string, created time.Time) models.LiveEvent {
	return models.LiveEvent{
		PageId:      "p1",
		SenderId:    sender,
		RecipientId: "p1",
		MessageId:   id,
		CreatedTime: created.UnixMilli(),
		Text:        "hello " + id,
	}
}

func unread(t *testing.T, h *harness) int64 {
	t.Helper()
	n, err := h.engine.Unread(context.Background())
	require.NoError(t, err)
	return n
}

func TestListenerCommitsIncomingEvent(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, testPage)
	h.seedConversation(t, models.MetaConversation{ConversationId: "c1", PageId: "p1", CorrespondentId: "u1", UpdatedTime: at(2, 8).UnixMilli()})
	require.NoError(t, h.store.InsertMessage(ctx, &models.MetaMessage{MessageId: "m0", ConversationId: "c1", PageId: "p1", CreatedTime: at(2, 8).UnixMilli(), Opened: true, DayStarter: true}))

	out, err := h.engine.Listener().Handle(ctx, liveEvent("m1", "u1", at(2, 9)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, out)

	m1, err := h.store.FindMessage(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, m1.Opened)
	assert.False(t, m1.DayStarter)
	assert.Equal(t, int64(1), unread(t, h))

	conv, _ := h.store.FindConversation(ctx, "c1")
	assert.Equal(t, at(2, 9).UnixMilli(), conv.UpdatedTime)

	t.Run("duplicate leaves unread unchanged", func(t *testing.T) {
		out, err := h.engine.Listener().Handle(ctx, liveEvent("m1", "u1", at(2, 9)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, out)
		assert.Equal(t, int64(1), unread(t, h))
	})

	t.Run("older than latest is dropped", func(t *testing.T) {
		out, err := h.engine.Listener().Handle(ctx, liveEvent("m_old", "u1", at(1, 9)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeOutOfOrder, out)
		_, err = h.store.FindMessage(ctx, "m_old")
		assert.Error(t, err)
	})

	t.Run("new day starts a day", func(t *testing.T) {
		out, err := h.engine.Listener().Handle(ctx, liveEvent("m2", "u1", at(3, 1)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeCommitted, out)
		m2, _ := h.store.FindMessage(ctx, "m2")
		assert.True(t, m2.DayStarter)
		assert.Equal(t, int64(2), unread(t, h))
	})

	t.Run("mark read decrements counter", func(t *testing.T) {
		n, err := h.engine.MarkRead(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Equal(t, int64(0), unread(t, h))
	})
}

func TestListenerEchoAndDelete(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, testPage)
	h.seedConversation(t, models.MetaConversation{ConversationId: "c1", PageId: "p1", CorrespondentId: "u1"})

	out, err := h.engine.Listener().Handle(ctx, liveEvent("m_echo", "ig1", at(2, 9)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeEcho, out)
	assert.Equal(t, int64(0), unread(t, h))

	_, err = h.engine.Listener().Handle(ctx, liveEvent("m1", "u1", at(2, 9)))
	require.NoError(t, err)

	del := models.LiveEvent{PageId: "p1", MessageId: "m1", IsDeleted: true}
	out, err = h.engine.Listener().Handle(ctx, del)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, out)
	_, err = h.store.FindMessage(ctx, "m1")
	assert.Error(t, err)

	// xóa tin không tồn tại là no-op
	out, err = h.engine.Listener().Handle(ctx, del)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, out)
}

func TestListenerDeleteRepairsTimelineAndUnread(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, testPage)
	h.seedConversation(t, models.MetaConversation{ConversationId: "c1", PageId: "p1", CorrespondentId: "u1"})

	for _, ev := range []models.LiveEvent{liveEvent("m1", "u1", at(2, 9)), liveEvent("m2", "u1", at(2, 10))} {
		out, err := h.engine.Listener().Handle(ctx, ev)
		require.NoError(t, err)
		require.Equal(t, OutcomeCommitted, out)
	}
	require.Equal(t, int64(2), unread(t, h))

	out, err := h.engine.Listener().Handle(ctx, models.LiveEvent{PageId: "p1", MessageId: "m1", IsDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, out)

	timeline, err := h.store.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, "m2", timeline[0].MessageId)
	assert.True(t, timeline[0].DayStarter)

	stored, err := h.store.CountUnread(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored)
	assert.Equal(t, stored, unread(t, h))

	t.Run("deleting a read message keeps the counter", func(t *testing.T) {
		_, err := h.engine.MarkRead(ctx, "c1")
		require.NoError(t, err)
		out, err := h.engine.Listener().Handle(ctx, models.LiveEvent{PageId: "p1", MessageId: "m2", IsDeleted: true})
		require.NoError(t, err)
		assert.Equal(t, OutcomeDeleted, out)
		assert.Equal(t, int64(0), unread(t, h))
	})
}

func TestListenerOrphanPolicies(t *testing.T) {
	t.Run("drop", func(t *testing.T) {
		h := newHarness(t, OrphanDrop)
		h.seedPage(t, testPage)
		out, err := h.engine.Listener().Handle(context.Background(), liveEvent("m1", "u_new", at(2, 9)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeOrphan, out)
		assert.Equal(t, int64(0), unread(t, h))
	})

	t.Run("targeted resync", func(t *testing.T) {
		h := newHarness(t, OrphanTargeted)
		ctx := context.Background()
		h.seedPage(t, testPage)
		h.graph.byUser["u_new"] = []graph.ConversationSummary{{ID: "c_new", UpdatedTime: at(2, 8), InDayRange: true}}

		out, err := h.engine.Listener().Handle(ctx, liveEvent("m1", "u_new", at(2, 9)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeCommitted, out)

		conv, err := h.store.FindConversation(ctx, "c_new")
		require.NoError(t, err)
		assert.Equal(t, "u_new", conv.CorrespondentId)
		m1, err := h.store.FindMessage(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "c_new", m1.ConversationId)
		assert.Equal(t, int64(1), unread(t, h))
	})

	t.Run("targeted without remote match", func(t *testing.T) {
		h := newHarness(t, OrphanTargeted)
		h.seedPage(t, testPage)
		out, err := h.engine.Listener().Handle(context.Background(), liveEvent("m1", "u_ghost", at(2, 9)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeOrphan, out)
	})

	t.Run("full refresh", func(t *testing.T) {
		h := newHarness(t, OrphanFull)
		ctx := context.Background()
		h.seedPage(t, testPage)
		h.graph.conversations[models.PlatformFacebook] = []graph.ConversationSummary{{ID: "c9", UpdatedTime: at(2, 8), InDayRange: true}}
		h.graph.messages["c9"] = []graph.MessageBatch{{Messages: []parser.ParsedMessage{msg("m0", "u9", "p1", 2, 8)}}}

		out, err := h.engine.Listener().Handle(ctx, liveEvent("m1", "u9", at(2, 9)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeCommitted, out)
		conv, _ := h.store.FindConversation(ctx, "c9")
		assert.Equal(t, "u9", conv.CorrespondentId)
	})
}

func TestListenerStateMachine(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, testPage)
	h.seedConversation(t, models.MetaConversation{ConversationId: "c1", PageId: "p1", CorrespondentId: "u1"})
	l := h.engine.Listener()

	assert.Equal(t, StateUnsubscribed, l.State("p1"))
	require.NoError(t, l.Subscribe(ctx, "p1"))
	assert.Equal(t, StateListening, l.State("p1"))
	assert.Equal(t, []string{"p1"}, l.Subscribed())

	// sự kiện qua feed được áp dụng bất đồng bộ
	require.NoError(t, h.hub.Publish(ctx, liveEvent("m1", "u1", at(2, 9))))
	assert.Eventually(t, func() bool {
		_, err := h.store.FindMessage(ctx, "m1")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	l.Unsubscribe("p1")
	assert.Equal(t, StateUnsubscribed, l.State("p1"))

	// đã hủy đăng ký: sự kiện bị bỏ
	require.NoError(t, h.hub.Publish(ctx, liveEvent("m2", "u1", at(2, 10))))
	time.Sleep(50 * time.Millisecond)
	_, err := h.store.FindMessage(ctx, "m2")
	assert.Error(t, err)
}
