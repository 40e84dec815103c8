package inboxsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/feed"
	"message_mate/internal/logger"
	"message_mate/internal/parser"
	"message_mate/internal/registry"
	"message_mate/internal/store"
)

// ListenerState là trạng thái đăng ký realtime của một trang
type ListenerState string

const (
	StateUnsubscribed ListenerState = "unsubscribed"
	StateSubscribing  ListenerState = "subscribing"
	StateListening    ListenerState = "listening"
)

// OrphanPolicy quyết định cách xử lý sự kiện không tìm thấy hội thoại
type OrphanPolicy string

const (
	OrphanDrop     OrphanPolicy = "drop"     // Bỏ sự kiện
	OrphanTargeted OrphanPolicy = "targeted" // Tìm hội thoại của người gửi trên Graph rồi áp dụng sự kiện
	OrphanFull     OrphanPolicy = "full"     // Refresh toàn trang rồi áp dụng sự kiện
)

// ParseOrphanPolicy đọc policy từ cấu hình, mặc định targeted
func ParseOrphanPolicy(s string) OrphanPolicy {
	switch OrphanPolicy(s) {
	case OrphanDrop, OrphanFull:
		return OrphanPolicy(s)
	}
	return OrphanTargeted
}

// Outcome là kết quả xử lý một sự kiện
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeDeleted    Outcome = "deleted"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeOutOfOrder Outcome = "out_of_order"
	OutcomeEcho       Outcome = "echo"
	OutcomeOrphan     Outcome = "orphan"
	OutcomeInvalid    Outcome = "invalid"
)

// OrphanResolver tìm lại hội thoại cho sự kiện mồ côi (Engine)
type OrphanResolver interface {
	ResyncCorrespondent(ctx context.Context, pageID, senderID string) (models.MetaConversation, error)
	Refresh(ctx context.Context, pageID string) (RefreshResult, error)
}

// Listener áp dụng sự kiện realtime vào store với cùng quy tắc commit như Reconciler
type Listener struct {
	feed    feed.Feed
	store   store.Store
	queue   *store.WriteQueue
	session *Session
	loc     *time.Location
	policy  OrphanPolicy
	orphans OrphanResolver
	states  *registry.Registry[ListenerState]
}

// NewListener tạo Listener
func NewListener(f feed.Feed, st store.Store, queue *store.WriteQueue, session *Session, loc *time.Location, policy OrphanPolicy) *Listener {
	if loc == nil {
		loc = time.Local
	}
	return &Listener{
		feed:    f,
		store:   st,
		queue:   queue,
		session: session,
		loc:     loc,
		policy:  policy,
		states:  registry.NewRegistry[ListenerState](),
	}
}

// SetOrphanResolver gắn resolver cho policy targeted / full
func (l *Listener) SetOrphanResolver(r OrphanResolver) {
	l.orphans = r
}

// State trả về trạng thái của trang, mặc định Unsubscribed
func (l *Listener) State(pageID string) ListenerState {
	if s, ok := l.states.Get(pageID); ok {
		return s
	}
	return StateUnsubscribed
}

// Subscribe: Unsubscribed → Subscribing → Listening. Lỗi đăng ký đưa trạng thái về Unsubscribed.
func (l *Listener) Subscribe(ctx context.Context, pageID string) error {
	log := logger.WithPage("listener", pageID)
	if l.State(pageID) == StateListening {
		return nil
	}
	if _, err := l.states.Register(pageID, StateSubscribing); err != nil {
		return err
	}

	err := l.feed.Subscribe(ctx, pageID, func(ctx context.Context, ev models.LiveEvent) {
		if _, err := l.Handle(ctx, ev); err != nil {
			log.WithError(err).WithField("message_id", ev.MessageId).Warn("📡 [LISTENER] Lỗi xử lý sự kiện")
		}
	})
	if err != nil {
		_, _ = l.states.Clear(pageID, nil)
		log.WithError(err).Error("📡 [LISTENER] Đăng ký luồng sự kiện thất bại")
		return common.Wrap(common.ErrFeedSubscription, err)
	}

	_, _ = l.states.Register(pageID, StateListening)
	log.Info("📡 [LISTENER] Đang lắng nghe sự kiện realtime")
	return nil
}

// Unsubscribe đưa trang về Unsubscribed
func (l *Listener) Unsubscribe(pageID string) {
	if l.State(pageID) == StateUnsubscribed {
		return
	}
	if err := l.feed.Unsubscribe(pageID); err != nil {
		logger.WithPage("listener", pageID).WithError(err).Warn("📡 [LISTENER] Lỗi hủy đăng ký")
	}
	_, _ = l.states.Clear(pageID, nil)
	logger.WithPage("listener", pageID).Info("📡 [LISTENER] Đã hủy đăng ký")
}

// Subscribed trả về các trang không ở trạng thái Unsubscribed
func (l *Listener) Subscribed() []string {
	return l.states.Names()
}

// Handle xử lý một sự kiện theo thứ tự: xóa, echo, tìm hội thoại (policy mồ côi), chống trùng,
// chống lệch thứ tự, rồi commit với opened=false và tăng bộ đếm chưa đọc.
func (l *Listener) Handle(ctx context.Context, ev models.LiveEvent) (Outcome, error) {
	pageID := ev.RoutingKey()
	log := logger.WithPage("listener", pageID).WithFields(logrus.Fields{
		"message_id": ev.MessageId,
		"sender_id":  ev.SenderId,
	})

	if ev.MessageId == "" {
		return OutcomeInvalid, nil
	}

	if ev.IsDeleted {
		deleted, wasUnread, err := l.deleteMessage(ctx, ev.MessageId)
		if err != nil {
			return OutcomeInvalid, err
		}
		if wasUnread {
			l.session.readUnread(ctx, 1)
		}
		log.WithField("deleted", deleted).Debug("📡 [LISTENER] Sự kiện xóa tin nhắn")
		return OutcomeDeleted, nil
	}

	page, err := l.store.FindPage(ctx, pageID)
	if err != nil {
		return OutcomeInvalid, fmt.Errorf("find page %s: %w", pageID, err)
	}
	if page.OwnsParticipant(ev.SenderId) {
		return OutcomeEcho, nil
	}
	if ev.SenderId == "" || (ev.Text == "" && ev.Attachment() == nil) {
		log.Debug("📡 [LISTENER] Sự kiện thiếu người gửi hoặc nội dung, bỏ qua")
		return OutcomeInvalid, nil
	}

	conv, err := l.store.FindConversationByCorrespondent(ctx, page.PageId, ev.SenderId)
	if errors.Is(err, common.ErrNotFound) {
		conv, err = l.resolveOrphan(ctx, page.PageId, ev.SenderId)
		if err != nil {
			log.WithError(err).WithField("policy", l.policy).Info("📡 [LISTENER] Không tìm thấy hội thoại cho sự kiện, bỏ qua")
			return OutcomeOrphan, nil
		}
	} else if err != nil {
		return OutcomeInvalid, err
	}

	outcome := OutcomeCommitted
	err = l.queue.Do(ctx, func(ctx context.Context) error {
		if _, err := l.store.FindMessage(ctx, ev.MessageId); err == nil {
			outcome = OutcomeDuplicate
			return nil
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		dayStarter := true
		latest, err := l.store.LastMessage(ctx, conv.ConversationId)
		switch {
		case err == nil:
			if ev.CreatedTime < latest.CreatedTime {
				outcome = OutcomeOutOfOrder
				return nil
			}
			dayStarter = !parser.SameDay(time.UnixMilli(latest.CreatedTime), time.UnixMilli(ev.CreatedTime), l.loc)
		case !errors.Is(err, common.ErrNotFound):
			return err
		}

		msg := models.MetaMessage{
			MessageId:      ev.MessageId,
			ConversationId: conv.ConversationId,
			PageId:         page.PageId,
			Text:           ev.Text,
			FromId:         ev.SenderId,
			ToId:           ev.RecipientId,
			CreatedTime:    ev.CreatedTime,
			Opened:         false,
			DayStarter:     dayStarter,
			Attachment:     ev.Attachment(),
		}
		if err := l.store.InsertMessage(ctx, &msg); err != nil {
			if errors.Is(err, common.ErrDuplicate) {
				outcome = OutcomeDuplicate
				return nil
			}
			return err
		}

		current, err := l.store.FindConversation(ctx, conv.ConversationId)
		if err != nil {
			return err
		}
		if ev.CreatedTime > current.UpdatedTime {
			current.UpdatedTime = ev.CreatedTime
			return l.store.SaveConversation(ctx, &current)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("📡 [LISTENER] Lỗi ghi sự kiện, bỏ thao tác")
		return OutcomeInvalid, err
	}

	if outcome == OutcomeCommitted {
		l.session.addUnread(ctx, 1)
		log.Info("📡 [LISTENER] Đã nhận tin nhắn mới")
	}
	return outcome, nil
}

// deleteMessage xóa tin rồi tính lại dayStarter trên timeline còn lại của hội thoại.
// wasUnread = true khi tin bị xóa chưa được đọc.
func (l *Listener) deleteMessage(ctx context.Context, messageID string) (deleted, wasUnread bool, err error) {
	err = l.queue.Do(ctx, func(ctx context.Context) error {
		msg, err := l.store.FindMessage(ctx, messageID)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if deleted, err = l.store.DeleteMessage(ctx, messageID); err != nil || !deleted {
			return err
		}
		wasUnread = !msg.Opened

		timeline, err := l.store.ListMessages(ctx, msg.ConversationId)
		if err != nil {
			return err
		}
		_, err = applyDayStarters(ctx, l.store, timeline, l.loc)
		return err
	})
	return deleted, wasUnread && deleted, err
}

// resolveOrphan áp policy mồ côi và tìm lại hội thoại của người gửi
func (l *Listener) resolveOrphan(ctx context.Context, pageID, senderID string) (models.MetaConversation, error) {
	if l.orphans == nil || l.policy == OrphanDrop {
		return models.MetaConversation{}, common.ErrConversationNotFound
	}
	switch l.policy {
	case OrphanFull:
		if _, err := l.orphans.Refresh(ctx, pageID); err != nil {
			return models.MetaConversation{}, err
		}
		return l.store.FindConversationByCorrespondent(ctx, pageID, senderID)
	default:
		return l.orphans.ResyncCorrespondent(ctx, pageID, senderID)
	}
}
