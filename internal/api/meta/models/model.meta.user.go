package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MetaUser là người nhắn tin với trang (correspondent)
type MetaUser struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserId     string             `json:"userId" bson:"userId" index:"unique"` // PSID (Messenger) hoặc IGSID
	Platform   Platform           `json:"platform" bson:"platform"`
	Name       string             `json:"name" bson:"name"`
	Username   string             `json:"username" bson:"username"`
	Email      string             `json:"email" bson:"email"`
	PictureURL string             `json:"pictureUrl" bson:"pictureUrl"`
	UpdatedAt  int64              `json:"updatedAt" bson:"updatedAt"`
}
