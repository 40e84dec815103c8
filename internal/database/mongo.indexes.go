package database

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/global"
	"message_mate/internal/logger"
)

// indexSpec là một index dựng từ tag `index` của model
type indexSpec struct {
	Name   string
	Keys   bson.D
	Unique bool
}

// parseIndexTag tách tag index: các cấu hình phân cách bởi ',', key:value phân cách bởi ':'
func parseIndexTag(tag string) map[string]string {
	entry := map[string]string{}
	for _, part := range strings.Split(tag, ",") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) == 2 {
			entry[kv[0]] = kv[1]
		} else {
			entry[kv[0]] = ""
		}
	}
	return entry
}

// bsonName lấy tên field trong bson tag (bỏ phần option như omitempty)
func bsonName(field reflect.StructField) string {
	name := strings.Split(field.Tag.Get("bson"), ",")[0]
	if name == "-" {
		return ""
	}
	return name
}

// indexSpecs đọc các index khai báo trên struct model.
// Hỗ trợ: unique, single:1|-1, compound:<tên nhóm> (thứ tự field theo thứ tự khai báo).
func indexSpecs(model interface{}) []indexSpec {
	modelType := reflect.TypeOf(model)
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	var specs []indexSpec
	compound := map[string]bson.D{}
	var groups []string

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		tag, ok := field.Tag.Lookup("index")
		if !ok {
			continue
		}
		name := bsonName(field)
		if name == "" {
			continue
		}

		cfg := parseIndexTag(tag)
		if _, ok := cfg["unique"]; ok {
			specs = append(specs, indexSpec{Name: name + "_unique", Keys: bson.D{{Key: name, Value: 1}}, Unique: true})
		}
		if order, ok := cfg["single"]; ok {
			value := 1
			if order == "-1" {
				value = -1
			}
			specs = append(specs, indexSpec{Name: name + "_single", Keys: bson.D{{Key: name, Value: value}}})
		}
		if group, ok := cfg["compound"]; ok && group != "" {
			if _, seen := compound[group]; !seen {
				groups = append(groups, group)
			}
			compound[group] = append(compound[group], bson.E{Key: name, Value: 1})
		}
	}

	sort.Strings(groups)
	for _, group := range groups {
		specs = append(specs, indexSpec{Name: group, Keys: compound[group], Unique: strings.Contains(group, "_unique")})
	}
	return specs
}

// sameIndex so sánh index hiện có với spec (keys theo thứ tự và unique)
func sameIndex(existing bson.M, spec indexSpec) bool {
	keys, ok := existing["key"].(bson.D)
	if !ok || len(keys) != len(spec.Keys) {
		return false
	}
	for i, k := range spec.Keys {
		if keys[i].Key != k.Key || fmt.Sprint(keys[i].Value) != fmt.Sprint(k.Value) {
			return false
		}
	}
	unique, _ := existing["unique"].(bool)
	return unique == spec.Unique
}

// CreateIndexes đảm bảo các index khai báo trên model tồn tại và đúng cấu hình.
// Index cùng tên nhưng khác cấu hình sẽ bị xóa và tạo lại.
func CreateIndexes(ctx context.Context, collection *mongo.Collection, model interface{}) error {
	log := logger.GetAppLogger().WithField("collection", collection.Name())

	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("không thể lấy danh sách index: %w", err)
	}
	defer cursor.Close(ctx)

	existing := map[string]bson.M{}
	for cursor.Next(ctx) {
		var info bson.D
		if err := cursor.Decode(&info); err != nil {
			return fmt.Errorf("không thể giải mã thông tin index: %w", err)
		}
		m := bson.M{}
		for _, e := range info {
			m[e.Key] = e.Value
		}
		if name, ok := m["name"].(string); ok {
			existing[name] = m
		}
	}

	for _, spec := range indexSpecs(model) {
		if current, ok := existing[spec.Name]; ok {
			if sameIndex(current, spec) {
				continue
			}
			if _, err := collection.Indexes().DropOne(ctx, spec.Name); err != nil {
				return fmt.Errorf("không thể xóa index %s: %w", spec.Name, err)
			}
			log.WithField("index", spec.Name).Info("Đã xóa index cũ")
		}

		opts := options.Index().SetName(spec.Name)
		if spec.Unique {
			opts.SetUnique(true)
		}
		if _, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: spec.Keys, Options: opts}); err != nil {
			return fmt.Errorf("không thể tạo index %s: %w", spec.Name, err)
		}
		log.WithField("index", spec.Name).Info("Đã tạo index")
	}
	return nil
}

// EnsureIndexes tạo index cho mọi collection của inbox
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	targets := []struct {
		name  string
		model interface{}
	}{
		{global.MongoDB_ColNames.MetaPages, models.MetaPage{}},
		{global.MongoDB_ColNames.MetaConversations, models.MetaConversation{}},
		{global.MongoDB_ColNames.MetaMessages, models.MetaMessage{}},
		{global.MongoDB_ColNames.MetaUsers, models.MetaUser{}},
	}
	for _, t := range targets {
		if err := CreateIndexes(ctx, db.Collection(t.name), t.model); err != nil {
			return fmt.Errorf("tạo index cho %s: %w", t.name, err)
		}
	}
	return nil
}
