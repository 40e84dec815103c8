package common

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// HTTP Status Code Constants
const (
	StatusOK        = 200 // Thành công
	StatusCreated   = 201 // Tạo mới thành công
	StatusAccepted  = 202 // Yêu cầu được chấp nhận
	StatusNoContent = 204 // Thành công nhưng không có nội dung trả về

	StatusBadRequest      = 400 // Yêu cầu không hợp lệ
	StatusUnauthorized    = 401 // Chưa xác thực
	StatusForbidden       = 403 // Không có quyền truy cập
	StatusNotFound        = 404 // Không tìm thấy tài nguyên
	StatusConflict        = 409 // Xung đột dữ liệu
	StatusTooManyRequests = 429 // Quá nhiều yêu cầu

	StatusInternalServerError = 500 // Lỗi server
	StatusBadGateway          = 502 // Gateway không hợp lệ
	StatusServiceUnavailable  = 503 // Dịch vụ không khả dụng
	StatusGatewayTimeout      = 504 // Gateway timeout
)

// Response Messages
const (
	MsgSuccess = "Thao tác thành công"
	MsgCreated = "Tạo mới thành công"

	MsgBadRequest         = "Yêu cầu không hợp lệ"
	MsgUnauthorized       = "Vui lòng đăng nhập"
	MsgNotFound           = "Không tìm thấy tài nguyên"
	MsgInternalError      = "Lỗi hệ thống"
	MsgServiceUnavailable = "Dịch vụ không khả dụng"

	MsgTokenMissing = "Thiếu token xác thực"
	MsgTokenInvalid = "Token không hợp lệ"
	MsgTokenExpired = "Token đã hết hạn"

	MsgValidationError = "Dữ liệu không hợp lệ"
	MsgDatabaseError   = "Lỗi tương tác với cơ sở dữ liệu"

	MsgNoLinkedAccounts   = "no linked accounts"
	MsgGenerationFailed   = "could not generate a response"
	MsgGraphUnavailable   = "Không thể kết nối Graph API"
	MsgConversationAbsent = "Không tìm thấy cuộc hội thoại"
)

// ErrorCode định nghĩa mã lỗi chi tiết
type ErrorCode struct {
	Code        string // Mã lỗi (ví dụ: AUTH_001)
	Category    string // Phân loại lỗi (ví dụ: Authentication)
	SubCategory string // Phân loại con (ví dụ: Token)
	Description string // Mô tả chi tiết
}

// Định nghĩa các mã lỗi theo hệ thống phân cấp
var (
	// System Errors (SYS_xxx)
	ErrCodeInternalServer = ErrorCode{
		Code:        "SYS_001",
		Category:    "System",
		SubCategory: "Internal",
		Description: "Lỗi hệ thống nội bộ",
	}

	// Authentication Errors (AUTH_xxx)
	ErrCodeAuth = ErrorCode{
		Code:        "AUTH",
		Category:    "Authentication",
		SubCategory: "General",
		Description: "Lỗi xác thực chung",
	}

	ErrCodeAuthToken = ErrorCode{
		Code:        "AUTH_001",
		Category:    "Authentication",
		SubCategory: "Token",
		Description: "Lỗi liên quan đến token",
	}

	// Validation Errors (VAL_xxx)
	ErrCodeValidationInput = ErrorCode{
		Code:        "VAL_001",
		Category:    "Validation",
		SubCategory: "Input",
		Description: "Lỗi dữ liệu đầu vào",
	}

	ErrCodeValidationFormat = ErrorCode{
		Code:        "VAL_002",
		Category:    "Validation",
		SubCategory: "Format",
		Description: "Lỗi định dạng dữ liệu",
	}

	// Database Errors (DB_xxx)
	ErrCodeDatabase = ErrorCode{
		Code:        "DB",
		Category:    "Database",
		SubCategory: "General",
		Description: "Lỗi cơ sở dữ liệu chung",
	}

	ErrCodeDatabaseConnection = ErrorCode{
		Code:        "DB_001",
		Category:    "Database",
		SubCategory: "Connection",
		Description: "Lỗi kết nối cơ sở dữ liệu",
	}

	ErrCodeDatabaseQuery = ErrorCode{
		Code:        "DB_002",
		Category:    "Database",
		SubCategory: "Query",
		Description: "Lỗi truy vấn dữ liệu",
	}

	// Business Logic Errors (BIZ_xxx)
	ErrCodeBusinessState = ErrorCode{
		Code:        "BIZ_001",
		Category:    "Business",
		SubCategory: "State",
		Description: "Lỗi trạng thái nghiệp vụ",
	}

	ErrCodeBusinessOperation = ErrorCode{
		Code:        "BIZ_002",
		Category:    "Business",
		SubCategory: "Operation",
		Description: "Lỗi thao tác nghiệp vụ",
	}

	// Graph API Errors (GRAPH_xxx)
	ErrCodeGraphTransport = ErrorCode{
		Code:        "GRAPH_001",
		Category:    "Graph",
		SubCategory: "Transport",
		Description: "Lỗi kết nối hoặc phản hồi không hợp lệ từ Graph API",
	}

	ErrCodeGraphAuth = ErrorCode{
		Code:        "GRAPH_002",
		Category:    "Graph",
		SubCategory: "OAuth",
		Description: "Access token Graph API hết hạn hoặc bị thu hồi",
	}

	ErrCodeGraphRateLimit = ErrorCode{
		Code:        "GRAPH_003",
		Category:    "Graph",
		SubCategory: "RateLimit",
		Description: "Graph API giới hạn tần suất hoặc circuit breaker đang mở",
	}

	// Sync Errors (SYNC_xxx)
	ErrCodeSyncSelection = ErrorCode{
		Code:        "SYNC_001",
		Category:    "Sync",
		SubCategory: "Selection",
		Description: "Không có trang nào đang hoạt động để chọn",
	}

	ErrCodeSyncFeed = ErrorCode{
		Code:        "SYNC_002",
		Category:    "Sync",
		SubCategory: "Feed",
		Description: "Lỗi đăng ký hoặc hủy đăng ký luồng sự kiện realtime",
	}

	// Generation Errors (GEN_xxx)
	ErrCodeGeneration = ErrorCode{
		Code:        "GEN_001",
		Category:    "Generation",
		SubCategory: "Remote",
		Description: "Dịch vụ sinh câu trả lời không phản hồi hợp lệ",
	}
)

// Error định nghĩa cấu trúc lỗi chi tiết
type Error struct {
	Code       ErrorCode // Mã lỗi chi tiết
	Message    string    // Thông báo lỗi
	StatusCode int       // HTTP status code
	Details    any       // Thông tin chi tiết thêm về lỗi
}

// Error trả về message của lỗi
func (e *Error) Error() string {
	return e.Message
}

// Is so sánh theo mã lỗi và message, để errors.Is nhận ra các lỗi chuẩn dù được tạo lại với Details khác
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code.Code == t.Code.Code && e.Message == t.Message
}

// Unwrap trả về lỗi gốc nếu Details là error
func (e *Error) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

// NewError tạo một error mới với đầy đủ thông tin
func NewError(code ErrorCode, message string, statusCode int, details any) error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// Custom errors
var (
	// Authentication Errors
	ErrTokenExpired = NewError(ErrCodeAuthToken, "Phiên đăng nhập đã hết hạn", StatusUnauthorized, nil)
	ErrTokenInvalid = NewError(ErrCodeAuthToken, "Token không hợp lệ", StatusUnauthorized, nil)
	ErrTokenMissing = NewError(ErrCodeAuthToken, "Thiếu token xác thực", StatusUnauthorized, nil)

	// Validation Errors
	ErrInvalidInput  = NewError(ErrCodeValidationInput, "Dữ liệu đầu vào không hợp lệ", StatusBadRequest, nil)
	ErrInvalidFormat = NewError(ErrCodeValidationFormat, "Định dạng dữ liệu không hợp lệ", StatusBadRequest, nil)
	ErrRequiredField = NewError(ErrCodeValidationInput, "Thiếu thông tin bắt buộc", StatusBadRequest, nil)

	// Database Errors
	ErrNotFound   = NewError(ErrCodeDatabaseQuery, "Không tìm thấy dữ liệu", StatusNotFound, nil)
	ErrDuplicate  = NewError(ErrCodeDatabaseQuery, "Dữ liệu đã tồn tại", StatusConflict, nil)
	ErrConnection = NewError(ErrCodeDatabaseConnection, "Lỗi kết nối cơ sở dữ liệu", StatusServiceUnavailable, nil)

	// Business Logic Errors
	ErrInvalidState     = NewError(ErrCodeBusinessState, "Trạng thái không hợp lệ", StatusBadRequest, nil)
	ErrInvalidOperation = NewError(ErrCodeBusinessOperation, "Thao tác không hợp lệ", StatusBadRequest, nil)

	// Graph API Errors
	ErrGraphUnavailable = NewError(ErrCodeGraphTransport, MsgGraphUnavailable, StatusBadGateway, nil)
	ErrGraphAuth        = NewError(ErrCodeGraphAuth, MsgTokenExpired, StatusUnauthorized, nil)
	ErrGraphThrottled   = NewError(ErrCodeGraphRateLimit, "Graph API đang bị giới hạn, thử lại sau", StatusTooManyRequests, nil)

	// Sync Errors
	ErrNoLinkedAccounts      = NewError(ErrCodeSyncSelection, MsgNoLinkedAccounts, StatusNotFound, nil)
	ErrConversationNotFound  = NewError(ErrCodeDatabaseQuery, MsgConversationAbsent, StatusNotFound, nil)
	ErrFeedSubscription      = NewError(ErrCodeSyncFeed, "Không thể đăng ký luồng sự kiện", StatusServiceUnavailable, nil)
	ErrGenerationFailed      = NewError(ErrCodeGeneration, MsgGenerationFailed, StatusBadGateway, nil)
	ErrDocumentStoreDisabled = NewError(ErrCodeBusinessOperation, "Document store chưa được cấu hình", StatusServiceUnavailable, nil)
)

// Wrap gắn lỗi gốc vào một lỗi chuẩn, giữ nguyên code/message để errors.Is vẫn khớp
func Wrap(base error, cause error) error {
	var e *Error
	if !errors.As(base, &e) {
		return base
	}
	return &Error{Code: e.Code, Message: e.Message, StatusCode: e.StatusCode, Details: cause}
}

// MongoDB Specific Errors
var (
	ErrMongoConnection = NewError(ErrCodeDatabaseConnection, "Lỗi kết nối MongoDB", StatusServiceUnavailable, nil)
	ErrMongoAuth       = NewError(ErrCodeAuth, "Lỗi xác thực MongoDB", StatusUnauthorized, nil)
	ErrMongoQuery      = NewError(ErrCodeDatabaseQuery, "Lỗi truy vấn MongoDB", StatusInternalServerError, nil)
	ErrMongoWrite      = NewError(ErrCodeDatabaseQuery, "Lỗi ghi dữ liệu MongoDB", StatusInternalServerError, nil)
	ErrMongoNetwork    = NewError(ErrCodeDatabaseConnection, "Lỗi mạng khi kết nối MongoDB", StatusServiceUnavailable, nil)
	ErrMongoTimeout    = NewError(ErrCodeDatabaseConnection, "Kết nối MongoDB bị timeout", StatusServiceUnavailable, nil)
	ErrMongoSystem     = NewError(ErrCodeDatabase, "Lỗi hệ thống MongoDB", StatusInternalServerError, nil)
)

// ConvertMongoError chuyển đổi lỗi MongoDB sang lỗi hệ thống
func ConvertMongoError(err error) error {
	if err == nil {
		return nil
	}

	// Lỗi đã chuẩn hóa thì giữ nguyên
	var customErr *Error
	if errors.As(err, &customErr) {
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}

	// Duplicate key phải kiểm tra trước CommandError (E11000 là write error)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if mongo.IsNetworkError(err) {
		return Wrap(ErrMongoNetwork, err)
	}
	if mongo.IsTimeout(err) {
		return Wrap(ErrMongoTimeout, err)
	}

	var mongoErr mongo.CommandError
	if errors.As(err, &mongoErr) {
		switch {
		case mongoErr.Code >= 100 && mongoErr.Code < 200:
			return Wrap(ErrMongoConnection, err)
		case mongoErr.Code >= 200 && mongoErr.Code < 300:
			return Wrap(ErrMongoAuth, err)
		case mongoErr.Code >= 300 && mongoErr.Code < 400:
			return Wrap(ErrMongoQuery, err)
		case mongoErr.Code >= 400 && mongoErr.Code < 500:
			return Wrap(ErrMongoWrite, err)
		case mongoErr.Code >= 500:
			return Wrap(ErrMongoSystem, err)
		}
	}

	return NewError(ErrCodeDatabase, "Lỗi kết nối cơ sở dữ liệu", StatusInternalServerError, err)
}

// StatusOf trả về HTTP status của lỗi chuẩn, mặc định 500
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return StatusInternalServerError
}
