package inboxsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/graph"
	"message_mate/internal/parser"
)

var testPage = models.MetaPage{PageId: "p1", Name: "Shop", AccessToken: "pt", Active: true, BusinessAccountId: "ig1"}

func msg(id string, from, to string, day, hour int) parser.ParsedMessage {
	return parser.ParsedMessage{
		ID:          id,
		Text:        "text " + id,
		From:        parser.Participant{ID: from, Name: "Name " + from},
		To:          parser.Participant{ID: to},
		CreatedTime: at(day, hour),
	}
}

func TestMergeMessagesOrderingAndDayStarters(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, testPage)
	h.seedConversation(t, models.MetaConversation{ConversationId: "c1", PageId: "p1", Platform: models.PlatformFacebook, InDayRange: true})

	// đến lệch thứ tự, hai tin cùng ngày 2 và một tin ngày 3
	batch := []parser.ParsedMessage{
		msg("m3", "u1", "p1", 3, 9),
		msg("m1", "u1", "p1", 2, 8),
		msg("m2", "p1", "u1", 2, 20),
	}
	committed, err := h.engine.Reconciler().MergeMessages(ctx, testPage, "c1", batch, MergeOptions{FetchStartedAt: at(4, 0).UnixMilli()})
	require.NoError(t, err)
	require.Len(t, committed, 3)

	timeline, err := h.store.ListMessages(ctx, "c1")
	require.NoError(t, err)
	ids := []string{timeline[0].MessageId, timeline[1].MessageId, timeline[2].MessageId}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
	assert.Equal(t, []bool{true, false, true}, []bool{timeline[0].DayStarter, timeline[1].DayStarter, timeline[2].DayStarter})
	for _, m := range timeline {
		assert.True(t, m.Opened, "tin lịch sử luôn opened")
	}

	conv, err := h.store.FindConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "u1", conv.CorrespondentId)
	assert.Equal(t, at(4, 0).UnixMilli(), conv.LastRefresh)
	assert.Equal(t, at(3, 9).UnixMilli(), conv.UpdatedTime)

	user, err := h.store.FindUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Name u1", user.Name)
}

func TestMergeMessagesIdempotent(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, testPage)
	h.seedConversation(t, models.MetaConversation{ConversationId: "c1", PageId: "p1", InDayRange: true})

	batch := []parser.ParsedMessage{msg("m1", "u1", "p1", 2, 8), msg("m2", "u1", "p1", 2, 9)}
	_, err := h.engine.Reconciler().MergeMessages(ctx, testPage, "c1", batch, MergeOptions{})
	require.NoError(t, err)
	committed, err := h.engine.Reconciler().MergeMessages(ctx, testPage, "c1", batch, MergeOptions{})
	require.NoError(t, err)
	assert.Empty(t, committed)

	timeline, _ := h.store.ListMessages(ctx, "c1")
	assert.Len(t, timeline, 2)
}

func TestMergeMessagesBackfillRecomputesDayStarter(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, testPage)
	h.seedConversation(t, models.MetaConversation{ConversationId: "c1", PageId: "p1", InDayRange: true})

	_, err := h.engine.Reconciler().MergeMessages(ctx, testPage, "c1", []parser.ParsedMessage{msg("m2", "u1", "p1", 2, 12)}, MergeOptions{})
	require.NoError(t, err)
	// tin cũ hơn cùng ngày đến sau: m2 không còn là tin đầu ngày
	_, err = h.engine.Reconciler().MergeMessages(ctx, testPage, "c1", []parser.ParsedMessage{msg("m1", "u1", "p1", 2, 7)}, MergeOptions{})
	require.NoError(t, err)

	m1, _ := h.store.FindMessage(ctx, "m1")
	m2, _ := h.store.FindMessage(ctx, "m2")
	assert.True(t, m1.DayStarter)
	assert.False(t, m2.DayStarter)
}

func TestMergeMessagesWatermark(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, testPage)
	h.seedConversation(t, models.MetaConversation{ConversationId: "c1", PageId: "p1", InDayRange: true, LastRefresh: 100})

	t.Run("failures keep watermark", func(t *testing.T) {
		_, err := h.engine.Reconciler().MergeMessages(ctx, testPage, "c1", []parser.ParsedMessage{msg("m1", "u1", "p1", 2, 7)}, MergeOptions{Failures: 1, FetchStartedAt: 500})
		require.NoError(t, err)
		conv, _ := h.store.FindConversation(ctx, "c1")
		assert.Equal(t, int64(100), conv.LastRefresh)
	})

	t.Run("outgoing keeps watermark", func(t *testing.T) {
		_, err := h.engine.Reconciler().MergeMessages(ctx, testPage, "c1", []parser.ParsedMessage{msg("m2", "p1", "u1", 2, 8)}, MergeOptions{Outgoing: true, FetchStartedAt: 500})
		require.NoError(t, err)
		conv, _ := h.store.FindConversation(ctx, "c1")
		assert.Equal(t, int64(100), conv.LastRefresh)
	})

	t.Run("clean batch moves watermark forward only", func(t *testing.T) {
		_, err := h.engine.Reconciler().MergeMessages(ctx, testPage, "c1", nil, MergeOptions{FetchStartedAt: 500})
		require.NoError(t, err)
		_, err = h.engine.Reconciler().MergeMessages(ctx, testPage, "c1", nil, MergeOptions{FetchStartedAt: 300})
		require.NoError(t, err)
		conv, _ := h.store.FindConversation(ctx, "c1")
		assert.Equal(t, int64(500), conv.LastRefresh)
	})
}

func TestMergeMessagesUnknownConversation(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	_, err := h.engine.Reconciler().MergeMessages(context.Background(), testPage, "missing", []parser.ParsedMessage{msg("m1", "u1", "p1", 2, 7)}, MergeOptions{})
	assert.True(t, errors.Is(err, common.ErrConversationNotFound))
}

func TestMergeConversationsNeverTouchesWatermark(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedConversation(t, models.MetaConversation{ConversationId: "c1", PageId: "p1", UpdatedTime: 10, LastRefresh: 50, InDayRange: true})

	merged, err := h.engine.Reconciler().MergeConversations(ctx, "p1", models.PlatformFacebook, []graph.ConversationSummary{
		{ID: "c1", UpdatedTime: at(2, 0), InDayRange: true},
		{ID: "c2", UpdatedTime: at(3, 0), InDayRange: false},
	})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	c1, _ := h.store.FindConversation(ctx, "c1")
	assert.Equal(t, int64(50), c1.LastRefresh)
	assert.Equal(t, at(2, 0).UnixMilli(), c1.UpdatedTime)

	c2, _ := h.store.FindConversation(ctx, "c2")
	assert.Equal(t, int64(0), c2.LastRefresh)
	assert.False(t, c2.NeedsRefresh())
}

func TestResolveCorrespondent(t *testing.T) {
	page := models.MetaPage{PageId: "p1", BusinessAccountId: "ig1"}

	t.Run("first non-page sender", func(t *testing.T) {
		timeline := []models.MetaMessage{{FromId: "ig1", ToId: "u9"}, {FromId: "u2", ToId: "ig1"}}
		assert.Equal(t, "u2", ResolveCorrespondent(page, timeline))
	})

	t.Run("only page messages fall back to recipient", func(t *testing.T) {
		timeline := []models.MetaMessage{{FromId: "p1", ToId: "u3"}}
		assert.Equal(t, "u3", ResolveCorrespondent(page, timeline))
	})

	t.Run("empty timeline", func(t *testing.T) {
		assert.Equal(t, "", ResolveCorrespondent(page, nil))
	})
}
