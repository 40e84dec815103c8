package models

// Platform là nền tảng nhắn tin của một hội thoại
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// Valid kiểm tra platform có được hỗ trợ không
func (p Platform) Valid() bool {
	return p == PlatformFacebook || p == PlatformInstagram
}

// GraphParam trả về giá trị tham số platform khi gọi /{pageId}/conversations
func (p Platform) GraphParam() string {
	if p == PlatformInstagram {
		return "instagram"
	}
	return "messenger"
}
