package metasvc

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/store"
)

// MongoStore cài đặt store.Store trên các service MongoDB
type MongoStore struct {
	Pages         *MetaPageService
	Conversations *MetaConversationService
	Messages      *MetaMessageService
	Users         *MetaUserService
}

var _ store.Store = (*MongoStore)(nil)

// NewMongoStore tạo MongoStore trên database đã kết nối
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		Pages:         NewMetaPageService(db),
		Conversations: NewMetaConversationService(db),
		Messages:      NewMetaMessageService(db),
		Users:         NewMetaUserService(db),
	}
}

func (s *MongoStore) FindPage(ctx context.Context, pageID string) (models.MetaPage, error) {
	return s.Pages.FindOneByPageID(ctx, pageID)
}

func (s *MongoStore) ListPages(ctx context.Context, activeOnly bool) ([]models.MetaPage, error) {
	return s.Pages.FindAllOrdered(ctx, activeOnly)
}

func (s *MongoStore) SavePage(ctx context.Context, page *models.MetaPage) error {
	if page.PageId == "" {
		return common.ErrRequiredField
	}
	return s.Pages.UpsertPage(ctx, page)
}

func (s *MongoStore) FindConversation(ctx context.Context, conversationID string) (models.MetaConversation, error) {
	return s.Conversations.FindOneByConversationID(ctx, conversationID)
}

func (s *MongoStore) FindConversationByCorrespondent(ctx context.Context, pageID, correspondentID string) (models.MetaConversation, error) {
	return s.Conversations.FindOneByCorrespondent(ctx, pageID, correspondentID)
}

func (s *MongoStore) ListConversations(ctx context.Context, pageID string) ([]models.MetaConversation, error) {
	return s.Conversations.FindByPageSortByUpdated(ctx, pageID)
}

func (s *MongoStore) SaveConversation(ctx context.Context, conv *models.MetaConversation) error {
	if conv.ConversationId == "" {
		return common.ErrRequiredField
	}
	return s.Conversations.UpsertConversation(ctx, conv)
}

func (s *MongoStore) InsertMessage(ctx context.Context, msg *models.MetaMessage) error {
	if msg.MessageId == "" {
		return common.ErrRequiredField
	}
	return s.Messages.InsertMessage(ctx, msg)
}

func (s *MongoStore) FindMessage(ctx context.Context, messageID string) (models.MetaMessage, error) {
	return s.Messages.FindOneByMessageID(ctx, messageID)
}

func (s *MongoStore) ListMessages(ctx context.Context, conversationID string) ([]models.MetaMessage, error) {
	return s.Messages.FindByConversation(ctx, conversationID)
}

func (s *MongoStore) LastMessage(ctx context.Context, conversationID string) (models.MetaMessage, error) {
	return s.Messages.FindLastByConversation(ctx, conversationID)
}

func (s *MongoStore) SetDayStarter(ctx context.Context, messageID string, dayStarter bool) error {
	return s.Messages.SetDayStarter(ctx, messageID, dayStarter)
}

func (s *MongoStore) MarkConversationRead(ctx context.Context, conversationID string) (int64, error) {
	return s.Messages.MarkOpened(ctx, conversationID)
}

func (s *MongoStore) DeleteMessage(ctx context.Context, messageID string) (bool, error) {
	return s.Messages.DeleteOne(ctx, bson.M{"messageId": messageID})
}

func (s *MongoStore) CountUnread(ctx context.Context, pageID string) (int64, error) {
	return s.Messages.CountUnreadByPage(ctx, pageID)
}

func (s *MongoStore) FindUser(ctx context.Context, userID string) (models.MetaUser, error) {
	return s.Users.FindOneByUserID(ctx, userID)
}

func (s *MongoStore) SaveUser(ctx context.Context, user *models.MetaUser) error {
	if user.UserId == "" {
		return common.ErrRequiredField
	}
	return s.Users.UpsertUser(ctx, user)
}
