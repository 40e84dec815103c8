package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy ứng dụng
type Configuration struct {
	Address               string `env:"ADDRESS" envDefault:"8080" validate:"required,numeric"`         // Cổng server
	StoreDriver           string `env:"STORE_DRIVER" envDefault:"mongo" validate:"oneof=mongo memory"` // mongo | memory
	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI"`                                        // URL kết nối cơ sở dữ liệu (bắt buộc khi STORE_DRIVER=mongo)
	MongoDB_DBName        string `env:"MONGODB_DBNAME" envDefault:"message_mate"`                      // Tên cơ sở dữ liệu
	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`                                   // Các origins được phép (phân cách bởi dấu phẩy, * = tất cả)
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`                     // Cho phép gửi credentials
	RateLimit_Max         int    `env:"RATE_LIMIT_MAX" envDefault:"100"`                               // Số request tối đa trong window
	RateLimit_Window      int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"`                             // Thời gian window (giây)
	RateLimit_Enabled     bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`                          // Bật/tắt rate limiting
	AuthRequired          bool   `env:"AUTH_REQUIRED" envDefault:"false"`                              // Bắt buộc Firebase ID token cho /api/v1/meta

	// Firebase Configuration
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`                           // Firebase Project ID
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`                     // Đường dẫn đến service account JSON
	FirestorePagesRoot      string `env:"FIRESTORE_PAGES_COLLECTION" envDefault:"pages"` // Collection gốc {pages}

	// Meta Graph API
	GraphBaseURL         string `env:"GRAPH_BASE_URL" envDefault:"https://graph.facebook.com/v19.0" validate:"url"`
	GraphTimeoutSeconds  int    `env:"GRAPH_TIMEOUT_SECONDS" envDefault:"15"`
	GraphRatePerSecond   int    `env:"GRAPH_RATE_PER_SECOND" envDefault:"20" validate:"min=1"`
	GraphBurst           int    `env:"GRAPH_BURST" envDefault:"10" validate:"min=1"`
	GraphMaxRetries      int    `env:"GRAPH_MAX_RETRIES" envDefault:"3"`
	MetaAppID            string `env:"META_APP_ID"`
	MetaAppSecret        string `env:"META_APP_SECRET"`           // Dùng cho exchange token và kiểm tra chữ ký webhook
	MetaUserAccessToken  string `env:"META_USER_ACCESS_TOKEN"`    // User token ban đầu (sẽ được đổi sang long-lived)
	MetaWebhookVerifyTok string `env:"META_WEBHOOK_VERIFY_TOKEN"` // hub.verify_token

	// Sync
	SyncRecencyDays       int    `env:"SYNC_RECENCY_DAYS" envDefault:"30"`                                            // Cửa sổ ngày cho inDayRange
	SyncConcurrency       int    `env:"SYNC_CONCURRENCY" envDefault:"4" validate:"min=1,max=64"`                      // Số hội thoại refresh song song
	SyncDetailConcurrency int    `env:"SYNC_DETAIL_CONCURRENCY" envDefault:"8" validate:"min=1,max=64"`               // Số lời gọi chi tiết tin nhắn song song
	SyncMaxPages          int    `env:"SYNC_MAX_PAGES" envDefault:"10" validate:"min=1"`                              // Số trang cursor tối đa mỗi lần list
	SyncIntervalSeconds   int    `env:"SYNC_INTERVAL_SECONDS" envDefault:"300"`                                       // Chu kỳ worker refresh (0 = tắt)
	SyncOrphanPolicy      string `env:"SYNC_ORPHAN_POLICY" envDefault:"targeted" validate:"oneof=drop targeted full"` // drop | targeted | full
	SyncTimezone          string `env:"SYNC_TIMEZONE" envDefault:"Local"`                                             // Múi giờ tính dayStarter
	SessionUserID         string `env:"SESSION_USER_ID" envDefault:"owner" validate:"required"`                       // Người dùng của phiên đồng bộ

	// Realtime feed
	LiveFeed     string `env:"LIVE_FEED" envDefault:"hub" validate:"oneof=hub firestore kafka"` // hub | firestore | kafka
	KafkaBrokers string `env:"KAFKA_BROKERS"`                                                   // Phân cách bởi dấu phẩy
	KafkaTopic   string `env:"KAFKA_TOPIC" envDefault:"meta-live-events"`
	KafkaGroupID string `env:"KAFKA_GROUP_ID" envDefault:"message-mate"`

	// Unread counter
	RedisAddr     string `env:"REDIS_ADDR"` // Rỗng = dùng bộ đếm trong bộ nhớ
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Generation service
	GenerationURL            string `env:"GENERATION_URL"`
	GenerationAPIKey         string `env:"GENERATION_API_KEY"`
	GenerationTimeoutSeconds int    `env:"GENERATION_TIMEOUT_SECONDS" envDefault:"60"`
}

// KafkaBrokerList tách KAFKA_BROKERS thành danh sách
func (c *Configuration) KafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// getEnvPath trả về đường dẫn đến file env dựa trên môi trường
func getEnvPath() string {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	currentDir, err := os.Getwd()
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}

	// Tìm thư mục config/env
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			return filepath.Join(envDir, fmt.Sprintf("%s.env", env))
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig đọc file env (nếu có) rồi parse biến môi trường vào Configuration.
// Thiếu file env không phải lỗi: biến môi trường của process vẫn được dùng.
func NewConfig(files ...string) *Configuration {
	if len(files) == 0 {
		if envPath := getEnvPath(); envPath != "" {
			files = append(files, envPath)
		}
	}

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			fmt.Printf("Không tìm thấy file env tại %s, dùng biến môi trường\n", f)
			continue
		}
		if err := godotenv.Load(f); err != nil {
			fmt.Printf("Không thể load file env tại %s: %v\n", f, err)
			return nil
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		fmt.Printf("Lỗi khi parse config: %+v\n", err)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Config không hợp lệ: %v\n", err)
		return nil
	}

	return &cfg
}

// Validate kiểm tra các ràng buộc giữa các biến cấu hình
func (c *Configuration) Validate() error {
	switch c.StoreDriver {
	case "mongo":
		if c.MongoDB_ConnectionURI == "" {
			return fmt.Errorf("MONGODB_CONNECTION_URI is required when STORE_DRIVER=mongo")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.SyncOrphanPolicy {
	case "drop", "targeted", "full":
	default:
		return fmt.Errorf("unknown SYNC_ORPHAN_POLICY %q", c.SyncOrphanPolicy)
	}

	switch c.LiveFeed {
	case "hub":
	case "firestore":
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required when LIVE_FEED=firestore")
		}
	case "kafka":
		if len(c.KafkaBrokerList()) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when LIVE_FEED=kafka")
		}
	default:
		return fmt.Errorf("unknown LIVE_FEED %q", c.LiveFeed)
	}

	if c.SyncRecencyDays <= 0 {
		return fmt.Errorf("SYNC_RECENCY_DAYS must be positive")
	}
	return nil
}
