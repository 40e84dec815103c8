package metadto

// SendMessageInput là dữ liệu gửi tin trả lời
type SendMessageInput struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// GenerateInput là dữ liệu yêu cầu sinh câu trả lời
type GenerateInput struct {
	ResponseType string `json:"responseType" validate:"required,max=64"`
}

// GenerateOutput là câu trả lời được sinh
type GenerateOutput struct {
	Message string `json:"message"`
}

// MarkReadOutput là số tin vừa được đánh dấu đã đọc và bộ đếm còn lại
type MarkReadOutput struct {
	Marked int64 `json:"marked"`
	Unread int64 `json:"unread"`
}

// UnreadOutput là bộ đếm tin chưa đọc của phiên
type UnreadOutput struct {
	UserId string `json:"userId"`
	Unread int64  `json:"unread"`
}
