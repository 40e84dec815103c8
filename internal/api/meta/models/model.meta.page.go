package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MetaPage là một trang Facebook (có thể kèm tài khoản Instagram business) mà người dùng quản lý.
// Page không bao giờ bị xóa: vắng mặt trong lần list gần nhất thì Active = false.
type MetaPage struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PageId            string             `json:"pageId" bson:"pageId" index:"unique"`              // ID của trang
	Name              string             `json:"name" bson:"name"`                                 // Tên trang
	Category          string             `json:"category" bson:"category"`                         // Danh mục trang
	AccessToken       string             `json:"-" bson:"accessToken"`                             // Page access token
	BusinessAccountId string             `json:"businessAccountId" bson:"businessAccountId"`       // Instagram business account, rỗng = chưa resolve
	Active            bool               `json:"active" bson:"active" index:"single:1"`            // Có trong lần list gần nhất
	IsDefault         bool               `json:"isDefault" bson:"isDefault"`                       // Trang mặc định (tối đa một trang)
	PictureURL        string             `json:"pictureUrl" bson:"pictureUrl"`                     // Ảnh đại diện
	Position          int                `json:"position" bson:"position"`                         // Thứ tự trong lần list gần nhất
	CreatedAt         int64              `json:"createdAt" bson:"createdAt"`                       // Thời gian tạo
	UpdatedAt         int64              `json:"updatedAt" bson:"updatedAt"`                       // Thời gian cập nhật
}

// OwnsParticipant cho biết id có phải của chính trang (page id hoặc business id)
func (p *MetaPage) OwnsParticipant(id string) bool {
	return id != "" && (id == p.PageId || id == p.BusinessAccountId)
}
