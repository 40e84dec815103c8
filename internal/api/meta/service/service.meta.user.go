package metasvc

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	basesvc "message_mate/internal/api/base/service"
	"message_mate/internal/api/meta/models"
	"message_mate/internal/global"
)

// MetaUserService là cấu trúc chứa các phương thức liên quan đến người nhắn tin
type MetaUserService struct {
	*basesvc.BaseServiceMongoImpl[models.MetaUser]
}

// NewMetaUserService tạo mới MetaUserService
func NewMetaUserService(db *mongo.Database) *MetaUserService {
	return &MetaUserService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.MetaUser](db.Collection(global.MongoDB_ColNames.MetaUsers)),
	}
}

// FindOneByUserID tìm người nhắn theo userId
func (s *MetaUserService) FindOneByUserID(ctx context.Context, userID string) (models.MetaUser, error) {
	return s.FindOne(ctx, bson.M{"userId": userID}, nil)
}

// UpsertUser upsert theo userId
func (s *MetaUserService) UpsertUser(ctx context.Context, user *models.MetaUser) error {
	updated, err := s.Upsert(ctx, bson.M{"userId": user.UserId}, user)
	if err != nil {
		return err
	}
	*user = updated
	return nil
}
