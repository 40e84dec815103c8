package metasvc

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "message_mate/internal/api/base/service"
	"message_mate/internal/api/meta/models"
	"message_mate/internal/global"
)

// MetaPageService là cấu trúc chứa các phương thức liên quan đến trang
type MetaPageService struct {
	*basesvc.BaseServiceMongoImpl[models.MetaPage]
}

// NewMetaPageService tạo mới MetaPageService
func NewMetaPageService(db *mongo.Database) *MetaPageService {
	return &MetaPageService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.MetaPage](db.Collection(global.MongoDB_ColNames.MetaPages)),
	}
}

// FindOneByPageID tìm trang theo pageId
func (s *MetaPageService) FindOneByPageID(ctx context.Context, pageID string) (models.MetaPage, error) {
	return s.FindOne(ctx, bson.M{"pageId": pageID}, nil)
}

// FindAllOrdered trả về các trang theo thứ tự list
func (s *MetaPageService) FindAllOrdered(ctx context.Context, activeOnly bool) ([]models.MetaPage, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "pageId", Value: 1}})
	return s.Find(ctx, filter, opts)
}

// UpsertPage upsert theo pageId
func (s *MetaPageService) UpsertPage(ctx context.Context, page *models.MetaPage) error {
	updated, err := s.Upsert(ctx, bson.M{"pageId": page.PageId}, page)
	if err != nil {
		return err
	}
	*page = updated
	return nil
}
