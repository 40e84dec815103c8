package inboxsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/feed"
	"message_mate/internal/generation"
	"message_mate/internal/graph"
	"message_mate/internal/identity"
	"message_mate/internal/logger"
	"message_mate/internal/parser"
	"message_mate/internal/store"
)

// Deps là các cộng tác viên của Engine
type Deps struct {
	Store     store.Store
	Queue     *store.WriteQueue
	Graph     GraphAPI
	Tokens    identity.TokenSource
	Feed      feed.Feed
	Unread    UnreadCounter
	Generator Generator  // nil = tắt sinh câu trả lời
	Mirror    PageMirror // nil = không mirror sang document store
}

// Options là tham số đồng bộ
type Options struct {
	Concurrency  int // Số hội thoại refresh song song
	OrphanPolicy OrphanPolicy
	Location     *time.Location
}

// RefreshResult tóm tắt một lần refresh trang
type RefreshResult struct {
	PageID        string   `json:"pageId"`
	StartedAt     int64    `json:"startedAt"`
	Conversations int      `json:"conversations"` // Số hội thoại đã xét
	Refreshed     []string `json:"refreshed"`     // Hội thoại đã fetch tin nhắn
	Skipped       int      `json:"skipped"`       // Hội thoại không cần fetch
	Partial       []string `json:"partial"`       // Fetch xong nhưng có tin bị bỏ (watermark giữ nguyên)
	Failed        []string `json:"failed"`        // Fetch hoặc ghi thất bại
	Errors        []string `json:"errors,omitempty"`
}

func (r *RefreshResult) fail(id string, err error, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	r.Failed = append(r.Failed, id)
	r.Errors = append(r.Errors, err.Error())
}

// Engine điều phối đồng bộ của một phiên: refresh trang, hội thoại, tin nhắn, chọn trang và realtime
type Engine struct {
	store      store.Store
	queue      *store.WriteQueue
	graph      GraphAPI
	tokens     identity.TokenSource
	generator  Generator
	mirror     PageMirror
	reconciler *Reconciler
	selector   *Selector
	listener   *Listener
	session    *Session
	loading    *loadTracker
	opts       Options
	now        func() time.Time
}

// NewEngine tạo Engine và các thành phần con dùng chung store / queue / session
func NewEngine(deps Deps, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.OrphanPolicy == "" {
		opts.OrphanPolicy = OrphanTargeted
	}

	session := NewSession(deps.Tokens.UserID(), deps.Unread)
	e := &Engine{
		store:      deps.Store,
		queue:      deps.Queue,
		graph:      deps.Graph,
		tokens:     deps.Tokens,
		generator:  deps.Generator,
		mirror:     deps.Mirror,
		reconciler: NewReconciler(deps.Store, deps.Queue, opts.Location),
		selector:   NewSelector(deps.Store, deps.Queue, session),
		listener:   NewListener(deps.Feed, deps.Store, deps.Queue, session, opts.Location, opts.OrphanPolicy),
		session:    session,
		loading:    newLoadTracker(),
		opts:       opts,
		now:        time.Now,
	}
	e.listener.SetOrphanResolver(e)
	return e
}

// Session trả về phiên của Engine
func (e *Engine) Session() *Session { return e.session }

// Listener trả về listener realtime của Engine
func (e *Engine) Listener() *Listener { return e.listener }

// Reconciler trả về reconciler của Engine
func (e *Engine) Reconciler() *Reconciler { return e.reconciler }

// IsLoading cho biết trang còn hội thoại đang refresh
func (e *Engine) IsLoading(pageID string) bool {
	return e.loading.loading(pageID)
}

// authGuard đảm bảo lỗi token trong một thao tác chỉ được log và xử lý một lần
type authGuard struct {
	once  sync.Once
	token string
	err   error
}

// withUserToken gọi fn với user token, đổi token và thử lại đúng một lần khi Graph báo hết hạn
func (e *Engine) withUserToken(ctx context.Context, action string, fn func(token string) error) error {
	token, err := e.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return err
	}
	err = fn(token)
	if !graph.IsAuthError(err) {
		return err
	}
	logger.WithModule("sync").WithField("action", action).WithError(err).Warn("🔑 [SYNC] User token hết hạn, làm mới và thử lại")
	e.tokens.Invalidate()
	if token, err = e.tokens.GetValidAccessToken(ctx); err != nil {
		return err
	}
	return fn(token)
}

// withPageToken gọi fn với page token; khi hết hạn thì lấy lại page token qua /me/accounts một lần cho cả thao tác
func (e *Engine) withPageToken(ctx context.Context, page models.MetaPage, guard *authGuard, action string, fn func(token string) error) error {
	err := fn(page.AccessToken)
	if !graph.IsAuthError(err) {
		return err
	}
	guard.once.Do(func() {
		logger.WithPage("sync", page.PageId).WithField("action", action).WithError(err).Warn("🔑 [SYNC] Page token hết hạn, làm mới và thử lại")
		guard.token, guard.err = e.reloadPageToken(ctx, page.PageId)
	})
	if guard.err != nil {
		return err
	}
	return fn(guard.token)
}

// reloadPageToken lấy lại access token của trang và lưu vào store
func (e *Engine) reloadPageToken(ctx context.Context, pageID string) (string, error) {
	var summaries []graph.PageSummary
	err := e.withUserToken(ctx, "reload_page_token", func(token string) error {
		var err error
		summaries, err = e.graph.ListPages(ctx, token)
		return err
	})
	if err != nil {
		return "", err
	}
	for _, s := range summaries {
		if s.ID != pageID {
			continue
		}
		err := e.queue.Do(ctx, func(ctx context.Context) error {
			page, err := e.store.FindPage(ctx, pageID)
			if err != nil {
				return err
			}
			page.AccessToken = s.AccessToken
			return e.store.SavePage(ctx, &page)
		})
		return s.AccessToken, err
	}
	return "", common.ErrGraphAuth
}

// RefreshPages list lại các trang người dùng quản lý, đánh dấu trang vắng mặt là inactive,
// resolve tài khoản Instagram business, rồi chạy Selector.
// Lỗi list giữ nguyên dữ liệu cũ (không bao giờ vô hiệu hóa hàng loạt).
func (e *Engine) RefreshPages(ctx context.Context) ([]models.MetaPage, error) {
	log := logger.WithModule("sync")

	var summaries []graph.PageSummary
	err := e.withUserToken(ctx, "list_pages", func(token string) error {
		var err error
		summaries, err = e.graph.ListPages(ctx, token)
		return err
	})
	if err != nil {
		log.WithError(err).Error("🔄 [SYNC] Không list được trang, giữ nguyên dữ liệu cũ")
		return nil, err
	}

	business := make([]string, len(summaries))
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i, s := range summaries {
		i, s := i, s
		g.Go(func() error {
			id, err := e.graph.ResolveBusinessAccount(ctx, s.ID, s.AccessToken)
			if err != nil {
				logger.WithPage("sync", s.ID).WithError(err).Warn("🔄 [SYNC] Không resolve được tài khoản Instagram business")
				return nil
			}
			business[i] = id
			return nil
		})
	}
	_ = g.Wait()

	var saved, deactivated []models.MetaPage
	err = e.queue.Do(ctx, func(ctx context.Context) error {
		existing, err := e.store.ListPages(ctx, false)
		if err != nil {
			return err
		}
		byID := make(map[string]models.MetaPage, len(existing))
		for _, p := range existing {
			byID[p.PageId] = p
		}

		seen := make(map[string]bool, len(summaries))
		for i, s := range summaries {
			page, ok := byID[s.ID]
			if !ok {
				page = models.MetaPage{PageId: s.ID}
			}
			page.Name = s.Name
			page.Category = s.Category
			page.AccessToken = s.AccessToken
			page.PictureURL = s.PictureURL
			page.Active = true
			page.Position = i
			if business[i] != "" {
				page.BusinessAccountId = business[i]
			}
			if err := e.store.SavePage(ctx, &page); err != nil {
				return err
			}
			seen[s.ID] = true
			saved = append(saved, page)
		}

		for _, p := range existing {
			if seen[p.PageId] || !p.Active {
				continue
			}
			p.Active = false
			if err := e.store.SavePage(ctx, &p); err != nil {
				return err
			}
			deactivated = append(deactivated, p)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("🔄 [SYNC] Lỗi ghi danh sách trang")
		return nil, err
	}

	for _, p := range deactivated {
		e.listener.Unsubscribe(p.PageId)
	}
	if e.mirror != nil {
		for _, p := range append(saved, deactivated...) {
			if err := e.mirror.MirrorPage(ctx, p); err != nil {
				logger.WithPage("sync", p.PageId).WithError(err).Warn("🔄 [SYNC] Không mirror được trang sang document store")
			}
		}
	}

	log.WithFields(logrus.Fields{"active": len(saved), "deactivated": len(deactivated)}).Info("🔄 [SYNC] Đã refresh danh sách trang")

	sel, err := e.selector.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	e.applySelection(ctx, sel)
	e.RecountUnread(ctx)

	return e.store.ListPages(ctx, true)
}

// SelectPage chọn thủ công một trang
func (e *Engine) SelectPage(ctx context.Context, pageID string) (models.MetaPage, error) {
	sel, err := e.selector.Select(ctx, pageID)
	if err != nil {
		return models.MetaPage{}, err
	}
	e.applySelection(ctx, sel)
	if sel.Page == nil {
		return models.MetaPage{}, common.ErrNoLinkedAccounts
	}
	return *sel.Page, nil
}

// SelectedPage trả về trang đang chọn hoặc common.ErrNoLinkedAccounts
func (e *Engine) SelectedPage(ctx context.Context) (models.MetaPage, error) {
	pageID := e.session.Selected()
	if pageID == "" {
		return models.MetaPage{}, common.ErrNoLinkedAccounts
	}
	return e.store.FindPage(ctx, pageID)
}

// applySelection: đổi lựa chọn là điều kiện duy nhất để đăng ký lại realtime.
// Lựa chọn giữ nguyên chỉ đảm bảo đăng ký còn hiệu lực.
func (e *Engine) applySelection(ctx context.Context, sel Selection) {
	if sel.Changed && sel.Previous != "" {
		e.listener.Unsubscribe(sel.Previous)
	}
	if sel.Page == nil {
		return
	}
	if !sel.Changed && e.listener.State(sel.Page.PageId) == StateListening {
		return
	}

	log := logger.WithPage("sync", sel.Page.PageId)
	guard := &authGuard{}
	err := e.withPageToken(ctx, *sel.Page, guard, "subscribe_app", func(token string) error {
		return e.graph.SubscribeApp(ctx, sel.Page.PageId, token)
	})
	if err != nil {
		log.WithError(err).Warn("🔄 [SYNC] Không đăng ký được webhook cho trang")
	}
	if err := e.listener.Subscribe(ctx, sel.Page.PageId); err != nil {
		log.WithError(err).Error("🔄 [SYNC] Không đăng ký được luồng realtime")
	}
}

// platformsOf: mọi trang có Messenger, trang có tài khoản business có thêm Instagram
func platformsOf(page models.MetaPage) []models.Platform {
	platforms := []models.Platform{models.PlatformFacebook}
	if page.BusinessAccountId != "" {
		platforms = append(platforms, models.PlatformInstagram)
	}
	return platforms
}

// Refresh đồng bộ hội thoại của trang và tin nhắn của các hội thoại đủ điều kiện.
// Lỗi từng hội thoại được ghi vào RefreshResult, không làm hỏng cả lần refresh.
func (e *Engine) Refresh(ctx context.Context, pageID string) (RefreshResult, error) {
	log := logger.WithPage("sync", pageID)
	started := e.now().UnixMilli()
	result := RefreshResult{PageID: pageID, StartedAt: started, Refreshed: []string{}, Partial: []string{}, Failed: []string{}}

	page, err := e.store.FindPage(ctx, pageID)
	if err != nil {
		return result, err
	}
	if !page.Active {
		return result, ErrPageInactive
	}

	// token "đang list" giữ cờ loading cho tới khi biết số hội thoại
	e.loading.add(pageID, 1)
	listing := true
	defer func() {
		if listing && e.loading.done(pageID) {
			log.Debug("🔄 [SYNC] Trang hết trạng thái loading")
		}
	}()

	guard := &authGuard{}
	var considered []models.MetaConversation
	for _, platform := range platformsOf(page) {
		var summaries []graph.ConversationSummary
		err := e.withPageToken(ctx, page, guard, "fetch_conversations", func(token string) error {
			var err error
			summaries, err = e.graph.FetchConversations(ctx, pageID, token, platform, graph.ConversationQuery{})
			return err
		})
		if err != nil {
			// không có dữ liệu vòng này = không thay đổi
			log.WithError(err).WithField("platform", platform).Warn("🔄 [SYNC] Lỗi fetch hội thoại")
			result.Errors = append(result.Errors, err.Error())
		}
		if len(summaries) == 0 {
			continue
		}
		merged, err := e.reconciler.MergeConversations(ctx, pageID, platform, summaries)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
		considered = append(considered, merged...)
	}

	if guard.err == nil && guard.token != "" {
		page.AccessToken = guard.token
	}

	result.Conversations = len(considered)
	e.loading.add(pageID, int64(len(considered)))
	listing = false
	if e.loading.done(pageID) {
		log.Debug("🔄 [SYNC] Trang hết trạng thái loading")
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for _, conv := range considered {
		conv := conv
		g.Go(func() error {
			defer func() {
				if e.loading.done(pageID) {
					log.Debug("🔄 [SYNC] Trang hết trạng thái loading")
				}
			}()
			if !conv.NeedsRefresh() {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}
			partial, err := e.refreshConversation(ctx, page, conv, guard, started)
			if err != nil {
				result.fail(conv.ConversationId, err, &mu)
				return nil
			}
			mu.Lock()
			result.Refreshed = append(result.Refreshed, conv.ConversationId)
			if partial {
				result.Partial = append(result.Partial, conv.ConversationId)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.WithFields(logrus.Fields{
		"conversations": result.Conversations,
		"refreshed":     len(result.Refreshed),
		"skipped":       result.Skipped,
		"failed":        len(result.Failed),
	}).Info("🔄 [SYNC] Đã refresh trang")
	return result, nil
}

// refreshConversation fetch hết các trang cursor của hội thoại rồi hợp nhất một lần.
// partial = true khi có tin bị bỏ, watermark khi đó giữ nguyên.
func (e *Engine) refreshConversation(ctx context.Context, page models.MetaPage, conv models.MetaConversation, guard *authGuard, startedAt int64) (bool, error) {
	var since *time.Time
	if conv.LastRefresh > 0 {
		t := time.UnixMilli(conv.LastRefresh)
		since = &t
	}

	var all []parser.ParsedMessage
	failures := 0
	cursor := ""
	for {
		var batch graph.MessageBatch
		err := e.withPageToken(ctx, page, guard, "fetch_messages", func(token string) error {
			var err error
			batch, err = e.graph.FetchMessages(ctx, conv.ConversationId, token, conv.Platform, since, cursor)
			return err
		})
		if err != nil {
			logger.WithPage("sync", page.PageId).WithError(err).WithField("conversation_id", conv.ConversationId).Warn("🔄 [SYNC] Lỗi fetch tin nhắn")
			return false, err
		}
		all = append(all, batch.Messages...)
		failures += batch.Failures
		if batch.Paging == nil || batch.Paging.After == "" || batch.Paging.After == cursor {
			break
		}
		cursor = batch.Paging.After
	}

	if _, err := e.reconciler.MergeMessages(ctx, page, conv.ConversationId, all, MergeOptions{
		Failures:       failures,
		FetchStartedAt: startedAt,
	}); err != nil {
		return false, err
	}
	e.enrichCorrespondent(ctx, page, conv.ConversationId)
	return failures > 0, nil
}

// enrichCorrespondent bổ sung tên / ảnh đại diện của người nhắn từ Graph nếu còn thiếu
func (e *Engine) enrichCorrespondent(ctx context.Context, page models.MetaPage, conversationID string) {
	conv, err := e.store.FindConversation(ctx, conversationID)
	if err != nil || conv.CorrespondentId == "" {
		return
	}
	user, err := e.store.FindUser(ctx, conv.CorrespondentId)
	if err != nil || user.PictureURL != "" {
		return
	}
	profile, err := e.graph.FetchProfile(ctx, user.UserId, page.AccessToken, conv.Platform)
	if err != nil {
		logger.WithPage("sync", page.PageId).WithError(err).WithField("user_id", user.UserId).Debug("🔄 [SYNC] Không lấy được hồ sơ người nhắn")
		return
	}
	_ = e.queue.Do(ctx, func(ctx context.Context) error {
		current, err := e.store.FindUser(ctx, user.UserId)
		if err != nil {
			return err
		}
		if current.Name == "" {
			current.Name = profile.Name
		}
		if current.Username == "" {
			current.Username = profile.Username
		}
		current.PictureURL = profile.PictureURL
		return e.store.SaveUser(ctx, &current)
	})
}

// ResyncCorrespondent tìm hội thoại của người gửi trên Graph (user_id=), hợp nhất và gắn người nhắn
func (e *Engine) ResyncCorrespondent(ctx context.Context, pageID, senderID string) (models.MetaConversation, error) {
	page, err := e.store.FindPage(ctx, pageID)
	if err != nil {
		return models.MetaConversation{}, err
	}

	guard := &authGuard{}
	for _, platform := range platformsOf(page) {
		var summaries []graph.ConversationSummary
		err := e.withPageToken(ctx, page, guard, "resync_correspondent", func(token string) error {
			var err error
			summaries, err = e.graph.FetchConversations(ctx, pageID, token, platform, graph.ConversationQuery{UserID: senderID})
			return err
		})
		if err != nil || len(summaries) == 0 {
			continue
		}
		merged, err := e.reconciler.MergeConversations(ctx, pageID, platform, summaries)
		if err != nil || len(merged) == 0 {
			continue
		}
		conv, err := e.reconciler.AssignCorrespondent(ctx, merged[0].ConversationId, senderID)
		if err != nil {
			return models.MetaConversation{}, err
		}
		if conv.CorrespondentId == senderID {
			logger.WithPage("sync", pageID).WithField("conversation_id", conv.ConversationId).Info("🔄 [SYNC] Đã tìm lại hội thoại cho người gửi mới")
			return conv, nil
		}
	}
	return models.MetaConversation{}, common.ErrConversationNotFound
}

// SendMessage gửi tin trả lời người nhắn và commit tin gửi đi (opened = true)
func (e *Engine) SendMessage(ctx context.Context, conversationID, text string) (models.MetaMessage, error) {
	conv, page, err := e.conversationPage(ctx, conversationID)
	if err != nil {
		return models.MetaMessage{}, err
	}
	if conv.CorrespondentId == "" {
		return models.MetaMessage{}, common.NewError(common.ErrCodeBusinessState, "Hội thoại chưa xác định được người nhắn", common.StatusConflict, conversationID)
	}

	var res graph.SendResult
	err = e.withPageToken(ctx, page, &authGuard{}, "send_message", func(token string) error {
		var err error
		res, err = e.graph.SendMessage(ctx, page.PageId, token, conv.CorrespondentId, text)
		return err
	})
	if err != nil {
		return models.MetaMessage{}, err
	}

	sender := page.PageId
	if conv.Platform == models.PlatformInstagram && page.BusinessAccountId != "" {
		sender = page.BusinessAccountId
	}
	outgoing := parser.ParsedMessage{
		ID:          res.MessageID,
		Text:        text,
		From:        parser.Participant{ID: sender},
		To:          parser.Participant{ID: conv.CorrespondentId},
		CreatedTime: e.now(),
	}
	if _, err := e.reconciler.MergeMessages(ctx, page, conversationID, []parser.ParsedMessage{outgoing}, MergeOptions{Outgoing: true}); err != nil {
		return models.MetaMessage{}, err
	}
	return e.store.FindMessage(ctx, res.MessageID)
}

// MarkRead đánh dấu đã đọc các tin của hội thoại và giảm bộ đếm chưa đọc
func (e *Engine) MarkRead(ctx context.Context, conversationID string) (int64, error) {
	if _, err := e.store.FindConversation(ctx, conversationID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, common.ErrConversationNotFound
		}
		return 0, err
	}
	var n int64
	err := e.queue.Do(ctx, func(ctx context.Context) error {
		var err error
		n, err = e.store.MarkConversationRead(ctx, conversationID)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.session.readUnread(ctx, n)
	return n, nil
}

// Generate gọi dịch vụ sinh câu trả lời cho hội thoại
func (e *Engine) Generate(ctx context.Context, conversationID, responseType, authorization string) (string, error) {
	if e.generator == nil {
		return "", common.ErrGenerationFailed
	}
	_, page, err := e.conversationPage(ctx, conversationID)
	if err != nil {
		return "", err
	}
	return e.generator.Generate(ctx, generation.Request{
		Authorization:   authorization,
		ResponseType:    responseType,
		ConversationID:  conversationID,
		PageAccessToken: page.AccessToken,
		PageName:        page.Name,
		PageID:          page.PageId,
	})
}

// Unread trả về số tin chưa đọc của phiên
func (e *Engine) Unread(ctx context.Context) (int64, error) {
	return e.session.Unread(ctx)
}

// RecountUnread đặt lại bộ đếm từ store (tổng tin chưa đọc của các trang đang hoạt động)
func (e *Engine) RecountUnread(ctx context.Context) {
	pages, err := e.store.ListPages(ctx, true)
	if err != nil {
		return
	}
	var total int64
	for _, p := range pages {
		n, err := e.store.CountUnread(ctx, p.PageId)
		if err != nil {
			logger.WithPage("sync", p.PageId).WithError(err).Warn("📬 [UNREAD] Không đếm được tin chưa đọc")
			return
		}
		total += n
	}
	e.session.resetUnread(ctx, total)
}

func (e *Engine) conversationPage(ctx context.Context, conversationID string) (models.MetaConversation, models.MetaPage, error) {
	conv, err := e.store.FindConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return conv, models.MetaPage{}, common.ErrConversationNotFound
		}
		return conv, models.MetaPage{}, err
	}
	page, err := e.store.FindPage(ctx, conv.PageId)
	return conv, page, err
}

// ResolvePageID tìm pageId từ id của trang hoặc tài khoản Instagram business (webhook Instagram dùng id business)
func (e *Engine) ResolvePageID(ctx context.Context, id string) (string, error) {
	if _, err := e.store.FindPage(ctx, id); err == nil {
		return id, nil
	}
	pages, err := e.store.ListPages(ctx, false)
	if err != nil {
		return "", err
	}
	for _, p := range pages {
		if p.OwnsParticipant(id) {
			return p.PageId, nil
		}
	}
	return "", common.ErrNotFound
}

// Close hủy mọi đăng ký realtime của phiên
func (e *Engine) Close() {
	for _, pageID := range e.listener.Subscribed() {
		e.listener.Unsubscribe(pageID)
	}
}
