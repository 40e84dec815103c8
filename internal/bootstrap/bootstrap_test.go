package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message_mate/config"
	"message_mate/internal/feed"
	"message_mate/internal/identity"
	"message_mate/internal/store"
)

func memoryConfig() *config.Configuration {
	return &config.Configuration{
		StoreDriver:         "memory",
		LiveFeed:            "hub",
		SyncOrphanPolicy:    "full",
		SyncTimezone:        "UTC",
		SyncRecencyDays:     30,
		SyncConcurrency:     2,
		SessionUserID:       "owner",
		MetaUserAccessToken: "user-token",
		GraphBaseURL:        "http://127.0.0.1:1",
		GraphTimeoutSeconds: 1,
		GraphRatePerSecond:  10,
		GraphBurst:          1,
		FirestorePagesRoot:  "pages",
	}
}

func TestNewMemoryApp(t *testing.T) {
	app, err := New(context.Background(), memoryConfig())
	require.NoError(t, err)
	t.Cleanup(app.Close)

	assert.IsType(t, &store.Memory{}, app.Store)
	assert.IsType(t, &feed.Hub{}, app.Feed)
	assert.False(t, app.Docs.Enabled())
	assert.Empty(t, app.HealthChecks())
	assert.Nil(t, app.VerifyIDToken())
	assert.Equal(t, "owner", app.Engine.Session().UserID())

	n, err := app.Engine.Unread(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenSourceChoice(t *testing.T) {
	cfg := memoryConfig()
	a := &App{Config: cfg}
	assert.IsType(t, &identity.StaticTokenSource{}, a.tokenSource())

	cfg.MetaAppID, cfg.MetaAppSecret = "app", "secret"
	assert.IsType(t, &identity.ExchangingTokenSource{}, a.tokenSource())
}

func TestNewRejectsUnknownDrivers(t *testing.T) {
	cfg := memoryConfig()
	cfg.LiveFeed = "carrier-pigeon"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = memoryConfig()
	cfg.StoreDriver = "sqlite"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestFeedsRegistry(t *testing.T) {
	assert.Equal(t, []string{"firestore", "hub", "kafka"}, Feeds().Names())

	factory, ok := Feeds().Get("firestore")
	require.True(t, ok)
	_, err := factory(memoryConfig())
	assert.Error(t, err, "firestore feed needs Firebase")
}
