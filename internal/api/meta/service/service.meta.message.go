package metasvc

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "message_mate/internal/api/base/service"
	"message_mate/internal/api/meta/models"
	"message_mate/internal/global"
)

// MetaMessageService là cấu trúc chứa các phương thức liên quan đến tin nhắn
type MetaMessageService struct {
	*basesvc.BaseServiceMongoImpl[models.MetaMessage]
}

// NewMetaMessageService tạo mới MetaMessageService
func NewMetaMessageService(db *mongo.Database) *MetaMessageService {
	return &MetaMessageService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.MetaMessage](db.Collection(global.MongoDB_ColNames.MetaMessages)),
	}
}

var timelineSort = bson.D{{Key: "createdTime", Value: 1}, {Key: "messageId", Value: 1}}

// InsertMessage thêm tin nhắn; unique index messageId biến trùng lặp thành common.ErrDuplicate
func (s *MetaMessageService) InsertMessage(ctx context.Context, msg *models.MetaMessage) error {
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}
	return s.InsertOne(ctx, *msg)
}

// FindOneByMessageID tìm tin nhắn theo messageId
func (s *MetaMessageService) FindOneByMessageID(ctx context.Context, messageID string) (models.MetaMessage, error) {
	return s.FindOne(ctx, bson.M{"messageId": messageID}, nil)
}

// FindByConversation trả về timeline tăng dần của hội thoại
func (s *MetaMessageService) FindByConversation(ctx context.Context, conversationID string) ([]models.MetaMessage, error) {
	return s.Find(ctx, bson.M{"conversationId": conversationID}, options.Find().SetSort(timelineSort))
}

// FindLastByConversation trả về tin nhắn mới nhất của hội thoại
func (s *MetaMessageService) FindLastByConversation(ctx context.Context, conversationID string) (models.MetaMessage, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdTime", Value: -1}, {Key: "messageId", Value: -1}})
	return s.FindOne(ctx, bson.M{"conversationId": conversationID}, opts)
}

// SetDayStarter cập nhật cờ dayStarter
func (s *MetaMessageService) SetDayStarter(ctx context.Context, messageID string, dayStarter bool) error {
	return s.UpdateOne(ctx, bson.M{"messageId": messageID}, basesvc.UpdateData{
		Set: map[string]interface{}{"dayStarter": dayStarter},
	})
}

// MarkOpened đánh dấu đã đọc mọi tin chưa đọc của hội thoại
func (s *MetaMessageService) MarkOpened(ctx context.Context, conversationID string) (int64, error) {
	return s.UpdateMany(ctx, bson.M{"conversationId": conversationID, "opened": false}, basesvc.UpdateData{
		Set: map[string]interface{}{"opened": true},
	})
}

// CountUnreadByPage đếm tin chưa đọc của trang
func (s *MetaMessageService) CountUnreadByPage(ctx context.Context, pageID string) (int64, error) {
	return s.CountDocuments(ctx, bson.M{"pageId": pageID, "opened": false})
}
