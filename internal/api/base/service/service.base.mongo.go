// package basesvc cung cấp các service cơ bản cho việc tương tác với MongoDB
package basesvc

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"message_mate/internal/common"
)

// UpdateData định nghĩa kiểu dữ liệu cho partial update
type UpdateData struct {
	Set         map[string]interface{} `bson:"$set,omitempty"`         // Các trường cần update
	SetOnInsert map[string]interface{} `bson:"$setOnInsert,omitempty"` // Các trường chỉ set khi insert (upsert tạo mới)
	Unset       map[string]interface{} `bson:"$unset,omitempty"`       // Các trường cần xóa
}

// ToSetMap chuyển model thành map cho $set (bỏ _id, createdAt để không ghi đè khi upsert)
func ToSetMap(data interface{}) (map[string]interface{}, error) {
	raw, err := bson.Marshal(data)
	if err != nil {
		return nil, common.Wrap(common.ErrInvalidFormat, err)
	}
	m := map[string]interface{}{}
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, common.Wrap(common.ErrInvalidFormat, err)
	}
	delete(m, "_id")
	delete(m, "createdAt")
	return m, nil
}

// BaseServiceMongoImpl cài đặt các thao tác CRUD chung trên một collection
type BaseServiceMongoImpl[T any] struct {
	collection *mongo.Collection // Collection MongoDB
}

// NewBaseServiceMongo tạo mới một BaseServiceMongoImpl
func NewBaseServiceMongo[T any](collection *mongo.Collection) *BaseServiceMongoImpl[T] {
	return &BaseServiceMongoImpl[T]{
		collection: collection,
	}
}

// Collection trả về collection MongoDB
func (s *BaseServiceMongoImpl[T]) Collection() *mongo.Collection {
	return s.collection
}

// InsertOne tạo mới một bản ghi. Trùng unique index trả về common.ErrDuplicate.
func (s *BaseServiceMongoImpl[T]) InsertOne(ctx context.Context, data T) error {
	_, err := s.collection.InsertOne(ctx, data)
	return common.ConvertMongoError(err)
}

// FindOne tìm một document theo điều kiện lọc
func (s *BaseServiceMongoImpl[T]) FindOne(ctx context.Context, filter interface{}, opts *options.FindOneOptions) (T, error) {
	var zero T
	var result T

	if filter == nil {
		filter = bson.D{}
	}
	if opts == nil {
		opts = options.FindOne()
	}

	findResult := s.collection.FindOne(ctx, filter, opts)
	if err := findResult.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, common.ErrNotFound
		}
		return zero, common.ConvertMongoError(err)
	}

	if err := findResult.Decode(&result); err != nil {
		return zero, common.NewError(
			common.ErrCodeValidationFormat,
			"Lỗi định dạng dữ liệu khi decode từ MongoDB",
			common.StatusInternalServerError,
			err,
		)
	}

	return result, nil
}

// Find tìm tất cả bản ghi theo điều kiện lọc, luôn trả về slice khác nil
func (s *BaseServiceMongoImpl[T]) Find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]T, error) {
	if filter == nil {
		filter = bson.D{}
	}
	if opts == nil {
		opts = options.Find()
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var results []T
	if err = cursor.All(ctx, &results); err != nil {
		return nil, common.ConvertMongoError(err)
	}

	if results == nil {
		results = []T{}
	}
	return results, nil
}

// Upsert cập nhật theo filter bằng $set, tạo mới nếu chưa có (createdAt qua $setOnInsert)
func (s *BaseServiceMongoImpl[T]) Upsert(ctx context.Context, filter interface{}, data interface{}) (T, error) {
	var zero T

	set, err := ToSetMap(data)
	if err != nil {
		return zero, err
	}

	now := time.Now().UnixMilli()
	set["updatedAt"] = now
	update := UpdateData{
		Set:         set,
		SetOnInsert: map[string]interface{}{"createdAt": now},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated T
	if err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		return zero, common.ConvertMongoError(err)
	}
	return updated, nil
}

// UpdateMany cập nhật nhiều document, trả về số document đã đổi
func (s *BaseServiceMongoImpl[T]) UpdateMany(ctx context.Context, filter interface{}, update UpdateData) (int64, error) {
	if update.Set == nil {
		update.Set = make(map[string]interface{})
	}
	update.Set["updatedAt"] = time.Now().UnixMilli()

	result, err := s.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, common.ConvertMongoError(err)
	}
	return result.ModifiedCount, nil
}

// UpdateOne cập nhật một document; không khớp document nào trả về common.ErrNotFound
func (s *BaseServiceMongoImpl[T]) UpdateOne(ctx context.Context, filter interface{}, update UpdateData) error {
	if update.Set == nil {
		update.Set = make(map[string]interface{})
	}
	update.Set["updatedAt"] = time.Now().UnixMilli()

	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return common.ConvertMongoError(err)
	}
	if result.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteOne xóa một document, trả về false nếu không có gì để xóa
func (s *BaseServiceMongoImpl[T]) DeleteOne(ctx context.Context, filter interface{}) (bool, error) {
	result, err := s.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, common.ConvertMongoError(err)
	}
	return result.DeletedCount > 0, nil
}

// CountDocuments đếm số document theo điều kiện lọc
func (s *BaseServiceMongoImpl[T]) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	if filter == nil {
		filter = bson.D{}
	}
	count, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, common.ConvertMongoError(err)
	}
	return count, nil
}
