// Package inboxsync đồng bộ hội thoại và tin nhắn Messenger / Instagram của các trang vào store cục bộ:
// hợp nhất kết quả fetch, áp dụng sự kiện realtime, chọn trang mặc định và duy trì bộ đếm chưa đọc.
package inboxsync

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/graph"
	"message_mate/internal/logger"
	"message_mate/internal/parser"
	"message_mate/internal/store"
)

// MergeOptions điều khiển watermark và trạng thái đọc khi hợp nhất tin nhắn
type MergeOptions struct {
	Failures       int   // Số tin bị bỏ trong batch; > 0 thì không dời watermark
	FetchStartedAt int64 // Thời điểm bắt đầu fetch (ms), dùng làm watermark mới
	Outgoing       bool  // Tin do trang gửi: không đụng tới watermark
}

// Reconciler hợp nhất kết quả fetch vào store. Mọi thao tác ghi đi qua WriteQueue.
type Reconciler struct {
	store store.Store
	queue *store.WriteQueue
	loc   *time.Location
}

// NewReconciler tạo Reconciler; loc là múi giờ tính dayStarter
func NewReconciler(st store.Store, queue *store.WriteQueue, loc *time.Location) *Reconciler {
	if loc == nil {
		loc = time.Local
	}
	return &Reconciler{store: st, queue: queue, loc: loc}
}

// MergeConversations tạo hoặc cập nhật hội thoại theo id.
// Hội thoại đã có chỉ đổi updatedTime / inDayRange, không bao giờ đụng tới lastRefresh.
func (r *Reconciler) MergeConversations(ctx context.Context, pageID string, platform models.Platform, summaries []graph.ConversationSummary) ([]models.MetaConversation, error) {
	log := logger.WithPage("reconcile", pageID)
	merged := make([]models.MetaConversation, 0, len(summaries))

	err := r.queue.Do(ctx, func(ctx context.Context) error {
		for _, s := range summaries {
			updated := s.UpdatedTime.UnixMilli()
			conv, err := r.store.FindConversation(ctx, s.ID)
			switch {
			case err == nil:
				if conv.UpdatedTime == updated && conv.InDayRange == s.InDayRange {
					merged = append(merged, conv)
					continue
				}
				conv.UpdatedTime = updated
				conv.InDayRange = s.InDayRange
			case errors.Is(err, common.ErrNotFound):
				conv = models.MetaConversation{
					ConversationId: s.ID,
					PageId:         pageID,
					Platform:       platform,
					UpdatedTime:    updated,
					InDayRange:     s.InDayRange,
				}
			default:
				return err
			}

			if err := r.store.SaveConversation(ctx, &conv); err != nil {
				return err
			}
			merged = append(merged, conv)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("🔄 [SYNC] Lỗi ghi hội thoại, bỏ thao tác")
		return merged, err
	}
	return merged, nil
}

// MergeMessages hợp nhất một batch tin nhắn vào hội thoại: bỏ id trùng, tính lại dayStarter trên toàn timeline,
// xác định người nhắn và dời watermark khi batch không có lỗi.
func (r *Reconciler) MergeMessages(ctx context.Context, page models.MetaPage, conversationID string, msgs []parser.ParsedMessage, opts MergeOptions) ([]models.MetaMessage, error) {
	log := logger.WithPage("reconcile", page.PageId).WithField("conversation_id", conversationID)
	batch := append([]parser.ParsedMessage(nil), msgs...)
	parser.SortMessages(batch)

	var committed []models.MetaMessage
	err := r.queue.Do(ctx, func(ctx context.Context) error {
		conv, err := r.store.FindConversation(ctx, conversationID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrConversationNotFound
			}
			return err
		}

		for _, m := range batch {
			if _, err := r.store.FindMessage(ctx, m.ID); err == nil {
				continue
			} else if !errors.Is(err, common.ErrNotFound) {
				return err
			}

			msg := models.MetaMessage{
				MessageId:      m.ID,
				ConversationId: conversationID,
				PageId:         page.PageId,
				Text:           m.Text,
				FromId:         m.From.ID,
				ToId:           m.To.ID,
				CreatedTime:    m.CreatedTime.UnixMilli(),
				Opened:         true,
				Attachment:     m.Attachment,
			}
			if err := r.store.InsertMessage(ctx, &msg); err != nil {
				if errors.Is(err, common.ErrDuplicate) {
					continue
				}
				return err
			}
			committed = append(committed, msg)
		}

		timeline, err := r.store.ListMessages(ctx, conversationID)
		if err != nil {
			return err
		}
		flags, err := r.applyDayStarters(ctx, timeline)
		if err != nil {
			return err
		}
		for i := range committed {
			committed[i].DayStarter = flags[committed[i].MessageId]
		}

		changed := false
		if conv.CorrespondentId == "" {
			if id := ResolveCorrespondent(page, timeline); id != "" {
				conv.CorrespondentId = id
				changed = true
			}
		}
		if conv.CorrespondentId != "" {
			if err := r.saveCorrespondent(ctx, conv, batch); err != nil {
				return err
			}
		}

		if n := len(timeline); n > 0 && timeline[n-1].CreatedTime > conv.UpdatedTime {
			conv.UpdatedTime = timeline[n-1].CreatedTime
			changed = true
		}
		if !opts.Outgoing && opts.Failures == 0 && opts.FetchStartedAt > conv.LastRefresh {
			conv.LastRefresh = opts.FetchStartedAt
			changed = true
		}
		if changed {
			return r.store.SaveConversation(ctx, &conv)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("🔄 [SYNC] Lỗi hợp nhất tin nhắn, bỏ thao tác")
		return committed, err
	}

	log.WithFields(logrus.Fields{
		"received":  len(batch),
		"committed": len(committed),
		"failures":  opts.Failures,
	}).Debug("🔄 [SYNC] Đã hợp nhất batch tin nhắn")
	return committed, nil
}

// applyDayStarters đặt cờ dayStarter cho timeline tăng dần, chỉ ghi những tin thay đổi
func (r *Reconciler) applyDayStarters(ctx context.Context, timeline []models.MetaMessage) (map[string]bool, error) {
	return applyDayStarters(ctx, r.store, timeline, r.loc)
}

// applyDayStarters: tin đầu timeline và tin đầu mỗi (tháng, ngày) mới là dayStarter.
// Dùng chung cho Reconciler và Listener (sau khi xóa tin).
func applyDayStarters(ctx context.Context, st store.Store, timeline []models.MetaMessage, loc *time.Location) (map[string]bool, error) {
	flags := make(map[string]bool, len(timeline))
	for i := range timeline {
		want := i == 0 || !parser.SameDay(time.UnixMilli(timeline[i-1].CreatedTime), time.UnixMilli(timeline[i].CreatedTime), loc)
		flags[timeline[i].MessageId] = want
		if timeline[i].DayStarter == want {
			continue
		}
		if err := st.SetDayStarter(ctx, timeline[i].MessageId, want); err != nil {
			return nil, err
		}
		timeline[i].DayStarter = want
	}
	return flags, nil
}

// saveCorrespondent upsert MetaUser của người nhắn từ thông tin participant trong batch.
// Chỉ ghi đè trường khác rỗng.
func (r *Reconciler) saveCorrespondent(ctx context.Context, conv models.MetaConversation, batch []parser.ParsedMessage) error {
	var found *parser.Participant
	for i := range batch {
		switch conv.CorrespondentId {
		case batch[i].From.ID:
			found = &batch[i].From
		case batch[i].To.ID:
			found = &batch[i].To
		}
		if found != nil {
			break
		}
	}

	user, err := r.store.FindUser(ctx, conv.CorrespondentId)
	switch {
	case err == nil:
		if found == nil {
			return nil
		}
	case errors.Is(err, common.ErrNotFound):
		user = models.MetaUser{UserId: conv.CorrespondentId, Platform: conv.Platform}
	default:
		return err
	}

	if found != nil {
		if found.Name != "" {
			user.Name = found.Name
		}
		if found.Username != "" {
			user.Username = found.Username
		}
		if found.Email != "" {
			user.Email = found.Email
		}
	}
	return r.store.SaveUser(ctx, &user)
}

// AssignCorrespondent gắn người nhắn cho hội thoại chưa resolve
func (r *Reconciler) AssignCorrespondent(ctx context.Context, conversationID, correspondentID string) (models.MetaConversation, error) {
	var conv models.MetaConversation
	err := r.queue.Do(ctx, func(ctx context.Context) error {
		var err error
		if conv, err = r.store.FindConversation(ctx, conversationID); err != nil {
			return err
		}
		if conv.CorrespondentId != "" {
			return nil
		}
		conv.CorrespondentId = correspondentID
		if err := r.store.SaveConversation(ctx, &conv); err != nil {
			return err
		}
		if _, err := r.store.FindUser(ctx, correspondentID); errors.Is(err, common.ErrNotFound) {
			return r.store.SaveUser(ctx, &models.MetaUser{UserId: correspondentID, Platform: conv.Platform})
		}
		return nil
	})
	return conv, err
}

// ResolveCorrespondent quét timeline tăng dần: tin đầu tiên có from không thuộc trang cho ra from;
// nếu mọi tin đều do trang gửi thì lấy to của tin đầu tiên.
func ResolveCorrespondent(page models.MetaPage, timeline []models.MetaMessage) string {
	fallback := ""
	for _, m := range timeline {
		if !page.OwnsParticipant(m.FromId) && m.FromId != "" {
			return m.FromId
		}
		if fallback == "" && !page.OwnsParticipant(m.ToId) {
			fallback = m.ToId
		}
	}
	return fallback
}
