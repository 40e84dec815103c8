package metasvc

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "message_mate/internal/api/base/service"
	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/global"
)

// MetaConversationService là cấu trúc chứa các phương thức liên quan đến hội thoại
type MetaConversationService struct {
	*basesvc.BaseServiceMongoImpl[models.MetaConversation]
}

// NewMetaConversationService tạo mới MetaConversationService
func NewMetaConversationService(db *mongo.Database) *MetaConversationService {
	return &MetaConversationService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.MetaConversation](db.Collection(global.MongoDB_ColNames.MetaConversations)),
	}
}

// FindOneByConversationID tìm hội thoại theo conversationId
func (s *MetaConversationService) FindOneByConversationID(ctx context.Context, conversationID string) (models.MetaConversation, error) {
	return s.FindOne(ctx, bson.M{"conversationId": conversationID}, nil)
}

// FindOneByCorrespondent tìm hội thoại mới nhất của một người nhắn trong trang
func (s *MetaConversationService) FindOneByCorrespondent(ctx context.Context, pageID, correspondentID string) (models.MetaConversation, error) {
	if correspondentID == "" {
		return models.MetaConversation{}, common.ErrNotFound
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedTime", Value: -1}})
	return s.FindOne(ctx, bson.M{"pageId": pageID, "correspondentId": correspondentID}, opts)
}

// FindByPageSortByUpdated trả về hội thoại của trang, mới nhất trước
func (s *MetaConversationService) FindByPageSortByUpdated(ctx context.Context, pageID string) ([]models.MetaConversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedTime", Value: -1}, {Key: "conversationId", Value: 1}})
	return s.Find(ctx, bson.M{"pageId": pageID}, opts)
}

// UpsertConversation upsert theo conversationId
func (s *MetaConversationService) UpsertConversation(ctx context.Context, conv *models.MetaConversation) error {
	updated, err := s.Upsert(ctx, bson.M{"conversationId": conv.ConversationId}, conv)
	if err != nil {
		return err
	}
	*conv = updated
	return nil
}
