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

func TestRefreshPages(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, models.MetaPage{PageId: "gone", Active: true, IsDefault: true, Position: 0})
	h.graph.pages = []graph.PageSummary{
		{ID: "p1", Name: "Shop", AccessToken: "pt1"},
		{ID: "p2", Name: "Cafe", AccessToken: "pt2"},
	}
	h.graph.business["p2"] = "ig2"
	h.graph.authFailures = 1 // token hết hạn ở lần đầu, thử lại một lần

	active, err := h.engine.RefreshPages(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "p1", active[0].PageId)
	assert.Equal(t, "ig2", active[1].BusinessAccountId)

	gone, err := h.store.FindPage(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, gone.Active)
	assert.False(t, gone.IsDefault)

	selected, err := h.engine.SelectedPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p1", selected.PageId)
	assert.Equal(t, StateListening, h.engine.Listener().State("p1"))
	assert.Contains(t, h.graph.subscribed, "p1")

	t.Run("list failure keeps pages", func(t *testing.T) {
		h.graph.authFailures = 2
		_, err := h.engine.RefreshPages(ctx)
		assert.Error(t, err)
		p2, _ := h.store.FindPage(ctx, "p2")
		assert.True(t, p2.Active)
	})

	t.Run("manual selection moves subscription", func(t *testing.T) {
		page, err := h.engine.SelectPage(ctx, "p2")
		require.NoError(t, err)
		assert.Equal(t, "p2", page.PageId)
		assert.Equal(t, StateUnsubscribed, h.engine.Listener().State("p1"))
		assert.Equal(t, StateListening, h.engine.Listener().State("p2"))
	})
}

func TestSelectedPageWithoutPages(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	_, err := h.engine.RefreshPages(context.Background())
	require.NoError(t, err)
	_, err = h.engine.SelectedPage(context.Background())
	assert.True(t, errors.Is(err, common.ErrNoLinkedAccounts))
}

func TestRefreshConversations(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, models.MetaPage{PageId: "p1", AccessToken: "pt", Active: true})
	// c_old đã refresh sau lần cập nhật cuối, c_far ngoài cửa sổ ngày
	h.seedConversation(t, models.MetaConversation{ConversationId: "c_old", PageId: "p1", UpdatedTime: at(1, 0).UnixMilli(), LastRefresh: at(5, 0).UnixMilli(), InDayRange: true})
	h.graph.conversations[models.PlatformFacebook] = []graph.ConversationSummary{
		{ID: "cA", UpdatedTime: at(3, 0), InDayRange: true},
		{ID: "c_old", UpdatedTime: at(1, 0), InDayRange: true},
		{ID: "c_far", UpdatedTime: at(2, 0), InDayRange: false},
		{ID: "c_bad", UpdatedTime: at(2, 0), InDayRange: true},
	}
	h.graph.messages["cA"] = []graph.MessageBatch{
		{Messages: []parser.ParsedMessage{msg("m3", "u1", "p1", 2, 12)}, Paging: &graph.Paging{After: "cur1"}},
		{Messages: []parser.ParsedMessage{msg("m1", "u1", "p1", 2, 8), msg("m2", "p1", "u1", 2, 9)}},
	}
	h.graph.failFetch["c_bad"] = common.ErrGraphUnavailable

	res, err := h.engine.Refresh(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Conversations)
	assert.ElementsMatch(t, []string{"cA"}, res.Refreshed)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []string{"c_bad"}, res.Failed)
	assert.False(t, h.engine.IsLoading("p1"), "mọi hội thoại đã giảm bộ đếm")

	assert.Equal(t, 0, h.graph.calls("c_old"))
	assert.Equal(t, 0, h.graph.calls("c_far"))
	assert.Equal(t, 2, h.graph.calls("cA"))

	timeline, _ := h.store.ListMessages(ctx, "cA")
	require.Len(t, timeline, 3)
	assert.Equal(t, "m1", timeline[0].MessageId)
	assert.True(t, timeline[0].DayStarter)
	assert.False(t, timeline[2].DayStarter)

	cA, _ := h.store.FindConversation(ctx, "cA")
	assert.Equal(t, res.StartedAt, cA.LastRefresh)
	assert.Equal(t, "u1", cA.CorrespondentId)

	user, _ := h.store.FindUser(ctx, "u1")
	assert.Equal(t, "https://cdn.example/u1", user.PictureURL)

	bad, _ := h.store.FindConversation(ctx, "c_bad")
	assert.Equal(t, int64(0), bad.LastRefresh)

	t.Run("second refresh skips up to date conversations", func(t *testing.T) {
		res, err := h.engine.Refresh(ctx, "p1")
		require.NoError(t, err)
		assert.Empty(t, res.Refreshed)
		assert.Equal(t, 2, h.graph.calls("cA"))
	})
}

func TestRefreshPartialBatchKeepsWatermark(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, models.MetaPage{PageId: "p1", AccessToken: "pt", Active: true})
	h.graph.conversations[models.PlatformFacebook] = []graph.ConversationSummary{{ID: "cA", UpdatedTime: at(3, 0), InDayRange: true}}
	h.graph.messages["cA"] = []graph.MessageBatch{{Messages: []parser.ParsedMessage{msg("m1", "u1", "p1", 2, 8)}, Failures: 1}}

	res, err := h.engine.Refresh(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cA"}, res.Partial)

	cA, _ := h.store.FindConversation(ctx, "cA")
	assert.Equal(t, int64(0), cA.LastRefresh)
	_, err = h.store.FindMessage(ctx, "m1")
	assert.NoError(t, err)
}

func TestRefreshInactivePage(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	h.seedPage(t, models.MetaPage{PageId: "p1", Active: false})
	_, err := h.engine.Refresh(context.Background(), "p1")
	assert.True(t, errors.Is(err, ErrPageInactive))
	assert.False(t, h.engine.IsLoading("p1"))
}

func TestSendMessage(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, testPage)
	h.seedConversation(t, models.MetaConversation{ConversationId: "c1", PageId: "p1", Platform: models.PlatformInstagram, CorrespondentId: "u1", LastRefresh: 42})

	sent, err := h.engine.SendMessage(ctx, "c1", "xin chao")
	require.NoError(t, err)
	assert.Equal(t, "m_sent_xin chao", sent.MessageId)
	assert.Equal(t, "ig1", sent.FromId)
	assert.Equal(t, "u1", sent.ToId)
	assert.True(t, sent.Opened)

	conv, _ := h.store.FindConversation(ctx, "c1")
	assert.Equal(t, int64(42), conv.LastRefresh)

	t.Run("unknown conversation", func(t *testing.T) {
		_, err := h.engine.SendMessage(ctx, "nope", "x")
		assert.True(t, errors.Is(err, common.ErrConversationNotFound))
	})
}

func TestResolvePageID(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	ctx := context.Background()
	h.seedPage(t, testPage)

	id, err := h.engine.ResolvePageID(ctx, "ig1")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	id, err = h.engine.ResolvePageID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	_, err = h.engine.ResolvePageID(ctx, "x")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestGenerateWithoutGenerator(t *testing.T) {
	h := newHarness(t, OrphanDrop)
	_, err := h.engine.Generate(context.Background(), "c1", "reply", "Bearer x")
	assert.True(t, errors.Is(err, common.ErrGenerationFailed))
}
