// Package bootstrap dựng toàn bộ phụ thuộc của phiên đồng bộ từ cấu hình:
// store, write queue, Graph client, token source, feed, bộ đếm chưa đọc, docstore, generation và Engine.
// Dùng chung cho cmd/server và cmd/inboxctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"message_mate/config"
	basehdl "message_mate/internal/api/base/handler"
	metasvc "message_mate/internal/api/meta/service"
	"message_mate/internal/api/middleware"
	"message_mate/internal/database"
	"message_mate/internal/docstore"
	"message_mate/internal/feed"
	"message_mate/internal/generation"
	"message_mate/internal/graph"
	"message_mate/internal/identity"
	"message_mate/internal/inboxsync"
	"message_mate/internal/logger"
	"message_mate/internal/registry"
	"message_mate/internal/store"
	"message_mate/internal/utility"
)

// App giữ các thành phần đã khởi tạo và thứ tự đóng chúng
type App struct {
	Config *config.Configuration
	Store  store.Store
	Queue  *store.WriteQueue
	Graph  *graph.Client
	Feed   feed.Feed
	Docs   *docstore.Store
	Engine *inboxsync.Engine

	mongo   *mongo.Client
	redis   *redis.Client
	closers []func() error
	log     *logrus.Entry
}

// FeedFactory dựng một transport feed từ cấu hình
type FeedFactory func(cfg *config.Configuration) (feed.Feed, error)

// Feeds là các transport feed theo giá trị LIVE_FEED
func Feeds() *registry.Registry[FeedFactory] {
	r := registry.NewRegistry[FeedFactory]()
	_, _ = r.Register("hub", func(cfg *config.Configuration) (feed.Feed, error) {
		return feed.NewHub(256), nil
	})
	_, _ = r.Register("firestore", func(cfg *config.Configuration) (feed.Feed, error) {
		client := utility.GetFirestore()
		if client == nil {
			return nil, errors.New("firestore feed requires an initialized Firebase app")
		}
		return feed.NewFirestoreFeed(client, cfg.FirestorePagesRoot), nil
	})
	_, _ = r.Register("kafka", func(cfg *config.Configuration) (feed.Feed, error) {
		return feed.NewKafkaFeed(feed.KafkaConfig{
			Brokers: cfg.KafkaBrokerList(),
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}), nil
	})
	return r
}

// New khởi tạo App. Lỗi ở phụ thuộc bắt buộc (store, feed) trả về lỗi;
// phụ thuộc tùy chọn (Firebase, Redis, generation) lỗi thì chạy ở chế độ giảm.
func New(ctx context.Context, cfg *config.Configuration) (*App, error) {
	a := &App{Config: cfg, log: logger.WithModule("bootstrap")}

	if err := a.initStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.Queue = store.NewWriteQueue(256)
	a.closers = append(a.closers, func() error { a.Queue.Close(); return nil })

	a.initFirebase(ctx)
	a.Docs = docstore.New(utility.GetFirestore(), cfg.FirestorePagesRoot)

	factory, ok := Feeds().Get(cfg.LiveFeed)
	if !ok {
		a.Close()
		return nil, fmt.Errorf("unknown LIVE_FEED %q", cfg.LiveFeed)
	}
	f, err := factory(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init live feed %s: %w", cfg.LiveFeed, err)
	}
	a.Feed = f
	a.closers = append(a.closers, f.Close)

	a.Graph = graph.NewClient(graph.ConfigFrom(cfg))

	deps := inboxsync.Deps{
		Store:  a.Store,
		Queue:  a.Queue,
		Graph:  a.Graph,
		Tokens: a.tokenSource(),
		Feed:   a.Feed,
		Unread: a.unreadCounter(ctx),
	}
	if cfg.GenerationURL != "" {
		deps.Generator = generation.NewClient(cfg.GenerationURL, cfg.GenerationAPIKey, time.Duration(cfg.GenerationTimeoutSeconds)*time.Second)
	}
	if a.Docs.Enabled() {
		deps.Mirror = a.Docs
	}

	a.Engine = inboxsync.NewEngine(deps, inboxsync.Options{
		Concurrency:  cfg.SyncConcurrency,
		OrphanPolicy: inboxsync.ParseOrphanPolicy(cfg.SyncOrphanPolicy),
		Location:     a.Graph.Location(),
	})
	// Engine đóng trước feed và queue
	a.closers = append(a.closers, func() error { a.Engine.Close(); return nil })

	a.log.WithFields(logrus.Fields{
		"store":      cfg.StoreDriver,
		"feed":       cfg.LiveFeed,
		"redis":      a.redis != nil,
		"firestore":  a.Docs.Enabled(),
		"generation": deps.Generator != nil,
	}).Info("🚀 [BOOTSTRAP] Đã khởi tạo phiên đồng bộ")
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.Config.StoreDriver {
	case "memory":
		a.Store = store.NewMemory()
		return nil
	case "mongo":
		client, err := database.GetInstance(a.Config)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		a.mongo = client
		a.closers = append(a.closers, func() error { return database.CloseInstance(client) })

		db := client.Database(a.Config.MongoDB_DBName)
		if err := database.EnsureIndexes(ctx, db); err != nil {
			a.log.WithError(err).Warn("🗄️ [BOOTSTRAP] Tạo index thất bại, tiếp tục chạy")
		}
		a.Store = metasvc.NewMongoStore(db)
		return nil
	}
	return fmt.Errorf("unknown STORE_DRIVER %q", a.Config.StoreDriver)
}

func (a *App) initFirebase(ctx context.Context) {
	if a.Config.FirebaseProjectID == "" {
		a.log.Warn("🔥 [BOOTSTRAP] Firebase config không đầy đủ, bỏ qua khởi tạo Firebase")
		return
	}
	if err := utility.InitFirebase(ctx, a.Config.FirebaseProjectID, a.Config.FirebaseCredentialsPath); err != nil {
		// Không fatal: API vẫn chạy, chỉ thiếu docstore và xác thực ID token
		a.log.WithError(err).Error("🔥 [BOOTSTRAP] Failed to initialize Firebase")
		return
	}
	a.closers = append(a.closers, utility.CloseFirebase)
	a.log.Info("🔥 [BOOTSTRAP] Firebase initialized successfully")
}

func (a *App) tokenSource() identity.TokenSource {
	cfg := a.Config
	if cfg.MetaAppID != "" && cfg.MetaAppSecret != "" {
		return identity.NewExchanging(cfg.SessionUserID, cfg.MetaUserAccessToken, a.Graph)
	}
	return identity.NewStatic(cfg.SessionUserID, cfg.MetaUserAccessToken)
}

func (a *App) unreadCounter(ctx context.Context) inboxsync.UnreadCounter {
	if a.Config.RedisAddr == "" {
		return inboxsync.NewMemoryCounter()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.log.WithError(err).Warn("📬 [BOOTSTRAP] Không kết nối được Redis, dùng bộ đếm trong bộ nhớ")
		_ = client.Close()
		return inboxsync.NewMemoryCounter()
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	return inboxsync.NewRedisCounter(client, inboxsync.DefaultUnreadPrefix)
}

// HealthChecks trả về health check của các phụ thuộc đang dùng
func (a *App) HealthChecks() map[string]basehdl.HealthCheck {
	checks := map[string]basehdl.HealthCheck{}
	if a.mongo != nil {
		checks["database"] = func(ctx context.Context) error { return a.mongo.Ping(ctx, nil) }
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

// VerifyIDToken xác thực Firebase ID token; nil khi Firebase Auth chưa khởi tạo
func (a *App) VerifyIDToken() middleware.VerifyFunc {
	if utility.GetFirebaseAuth() == nil {
		return nil
	}
	return func(ctx context.Context, idToken string) (string, error) {
		token, err := utility.VerifyIDToken(ctx, idToken)
		if err != nil {
			return "", err
		}
		return token.UID, nil
	}
}

// Close đóng các thành phần theo thứ tự ngược với lúc khởi tạo
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("🚀 [BOOTSTRAP] Đóng thành phần thất bại")
		}
	}
	a.closers = nil
}
