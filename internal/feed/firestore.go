package feed

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/logger"
)

// conversationsCollection là sub-collection chứa sự kiện mới nhất của từng người nhắn
const conversationsCollection = "conversations"

// FirestoreFeed lắng nghe snapshot của {pages}/{pageId}/conversations.
// Mỗi document (khóa = id người gửi) giữ sự kiện mới nhất của người đó.
type FirestoreFeed struct {
	client *firestore.Client
	root   string

	mu   sync.Mutex
	subs map[string]*firestoreSub
}

type firestoreSub struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFirestoreFeed tạo FirestoreFeed; root là collection gốc của trang
func NewFirestoreFeed(client *firestore.Client, root string) *FirestoreFeed {
	if root == "" {
		root = "pages"
	}
	return &FirestoreFeed{client: client, root: root, subs: make(map[string]*firestoreSub)}
}

var _ Feed = (*FirestoreFeed)(nil)

func (f *FirestoreFeed) conversations(pageID string) *firestore.CollectionRef {
	return f.client.Collection(f.root).Doc(pageID).Collection(conversationsCollection)
}

func (f *FirestoreFeed) Subscribe(ctx context.Context, pageID string, handler Handler) error {
	if pageID == "" || handler == nil {
		return common.ErrRequiredField
	}
	if err := f.Unsubscribe(pageID); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	it := f.conversations(pageID).Snapshots(runCtx)
	// snapshot đầu tiên là trạng thái hiện có: bỏ qua, chỉ xử lý thay đổi sau khi đăng ký
	if _, err := it.Next(); err != nil {
		it.Stop()
		cancel()
		return common.Wrap(common.ErrFeedSubscription, err)
	}

	sub := &firestoreSub{cancel: cancel, done: make(chan struct{})}
	f.mu.Lock()
	f.subs[pageID] = sub
	f.mu.Unlock()

	go func() {
		defer close(sub.done)
		defer it.Stop()
		log := logger.WithPage("feed", pageID)
		for {
			snap, err := it.Next()
			if err != nil {
				if runCtx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				log.WithError(err).Error("📡 [FEED] Firestore snapshot lỗi, dừng lắng nghe")
				return
			}
			for _, change := range snap.Changes {
				if change.Kind == firestore.DocumentRemoved {
					continue
				}
				var ev models.LiveEvent
				if err := change.Doc.DataTo(&ev); err != nil {
					log.WithError(err).WithField("doc", change.Doc.Ref.ID).Warn("📡 [FEED] Document sự kiện không hợp lệ")
					continue
				}
				if ev.PageId == "" {
					ev.PageId = pageID
				}
				handler(runCtx, ev)
			}
		}
	}()
	return nil
}

func (f *FirestoreFeed) Unsubscribe(pageID string) error {
	f.mu.Lock()
	sub := f.subs[pageID]
	delete(f.subs, pageID)
	f.mu.Unlock()
	if sub != nil {
		sub.cancel()
		<-sub.done
	}
	return nil
}

// Publish ghi sự kiện vào document của người gửi
func (f *FirestoreFeed) Publish(ctx context.Context, ev models.LiveEvent) error {
	pageID := ev.RoutingKey()
	if pageID == "" || ev.SenderId == "" {
		return common.ErrRequiredField
	}
	_, err := f.conversations(pageID).Doc(ev.SenderId).Set(ctx, ev)
	return err
}

// Close dừng mọi listener; client Firestore do bootstrap đóng
func (f *FirestoreFeed) Close() error {
	f.mu.Lock()
	ids := make([]string, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	f.mu.Unlock()
	for _, id := range ids {
		_ = f.Unsubscribe(id)
	}
	return nil
}
