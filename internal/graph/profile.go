package graph

import (
	"context"

	"github.com/tidwall/gjson"

	"message_mate/internal/api/meta/models"
)

// Profile là hồ sơ công khai của người nhắn tin
type Profile struct {
	ID         string
	Name       string
	Username   string
	PictureURL string
}

// FetchProfile lấy hồ sơ người nhắn (PSID hoặc IGSID) bằng page token
func (c *Client) FetchProfile(ctx context.Context, userID, pageToken string, platform models.Platform) (Profile, error) {
	params := tokenParams(pageToken)
	if platform == models.PlatformInstagram {
		params.Set("fields", "name,username,profile_pic")
	} else {
		params.Set("fields", "name,first_name,last_name,profile_pic")
	}

	data, err := c.get(ctx, userID, params)
	if err != nil {
		return Profile{}, err
	}
	doc := gjson.ParseBytes(data)
	name := doc.Get("name").String()
	if name == "" {
		name = joinName(doc.Get("first_name").String(), doc.Get("last_name").String())
	}
	return Profile{
		ID:         userID,
		Name:       name,
		Username:   doc.Get("username").String(),
		PictureURL: doc.Get("profile_pic").String(),
	}, nil
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
