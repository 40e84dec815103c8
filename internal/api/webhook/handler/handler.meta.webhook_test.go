package webhookhdl

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message_mate/internal/api/meta/models"
	webhookdto "message_mate/internal/api/webhook/dto"
	"message_mate/internal/common"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.LiveEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev models.LiveEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type mapResolver map[string]string

func (m mapResolver) ResolvePageID(ctx context.Context, id string) (string, error) {
	if pageID, ok := m[id]; ok {
		return pageID, nil
	}
	return "", common.ErrNotFound
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newWebhookApp(pub Publisher, secret string) *fiber.App {
	h := NewMetaWebhookHandler(pub, mapResolver{"p1": "p1", "ig1": "p1"}, secret, "verify-me")
	app := fiber.New()
	app.Get("/meta/webhook", h.HandleVerify)
	app.Post("/meta/webhook", h.HandleEvent)
	return app
}

func TestHandleVerify(t *testing.T) {
	app := newWebhookApp(&recordingPublisher{}, "")

	req := httptest.NewRequest(http.MethodGet, "/meta/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "12345", string(body))

	req = httptest.NewRequest(http.MethodGet, "/meta/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

const instagramPayload = `{
  "object": "instagram",
  "entry": [{
    "id": "ig1",
    "time": 1709283600000,
    "messaging": [
      {"sender": {"id": "u1"}, "recipient": {"id": "ig1"}, "timestamp": 1709283600123,
       "message": {"mid": "m1", "text": "hello"}},
      {"sender": {"id": "u1"}, "recipient": {"id": "ig1"}, "timestamp": 1709283600456,
       "message": {"mid": "m2", "attachments": [{"type": "story_mention", "payload": {"url": "https://cdn/story"}}]}},
      {"sender": {"id": "u1"}, "recipient": {"id": "ig1"}, "timestamp": 1709283600789}
    ]
  }]
}`

func TestHandleEvent(t *testing.T) {
	t.Run("publishes with resolved page", func(t *testing.T) {
		pub := &recordingPublisher{}
		app := newWebhookApp(pub, "s3cret")

		req := httptest.NewRequest(http.MethodPost, "/meta/webhook", strings.NewReader(instagramPayload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Hub-Signature-256", sign("s3cret", instagramPayload))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		require.Len(t, pub.events, 2)
		assert.Equal(t, "p1", pub.events[0].PageId)
		assert.Equal(t, "ig1", pub.events[0].BusinessId)
		assert.Equal(t, "hello", pub.events[0].Text)
		assert.Equal(t, int64(1709283600123), pub.events[0].CreatedTime)
		assert.Equal(t, "https://cdn/story", pub.events[1].StoryMentionURL)
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		pub := &recordingPublisher{}
		app := newWebhookApp(pub, "s3cret")

		req := httptest.NewRequest(http.MethodPost, "/meta/webhook", strings.NewReader(instagramPayload))
		req.Header.Set("X-Hub-Signature-256", sign("other", instagramPayload))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Empty(t, pub.events)
	})

	t.Run("malformed body", func(t *testing.T) {
		app := newWebhookApp(&recordingPublisher{}, "")
		req := httptest.NewRequest(http.MethodPost, "/meta/webhook", strings.NewReader("{"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("other objects are acknowledged", func(t *testing.T) {
		pub := &recordingPublisher{}
		app := newWebhookApp(pub, "")
		req := httptest.NewRequest(http.MethodPost, "/meta/webhook", strings.NewReader(`{"object":"user","entry":[]}`))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, pub.events)
	})
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"a":1}`)
	assert.True(t, ValidSignature("k", body, sign("k", string(body))))
	assert.False(t, ValidSignature("k", body, "sha1=abc"))
	assert.False(t, ValidSignature("k", body, "sha256=zz"))
	assert.False(t, ValidSignature("k", []byte(`{"a":2}`), sign("k", string(body))))
}

func TestToLiveEvents(t *testing.T) {
	entry := webhookdto.MetaWebhookEntry{
		ID:   "p1",
		Time: 1000,
		Messaging: []webhookdto.MetaWebhookMessaging{
			{
				Sender:    webhookdto.MetaWebhookParty{ID: "u1"},
				Recipient: webhookdto.MetaWebhookParty{ID: "p1"},
				Message: &webhookdto.MetaWebhookMessage{
					Mid: "m1",
					Attachments: []webhookdto.MetaWebhookAttachment{
						{Type: "story_mention", Payload: webhookdto.MetaWebhookAttachmentPayload{URL: "https://cdn/mention"}},
						{Type: "image", Payload: webhookdto.MetaWebhookAttachmentPayload{URL: "https://cdn/img"}},
					},
				},
			},
			{
				Sender:    webhookdto.MetaWebhookParty{ID: "u1"},
				Recipient: webhookdto.MetaWebhookParty{ID: "p1"},
				Timestamp: 2000,
				Message: &webhookdto.MetaWebhookMessage{
					Mid:     "m2",
					Text:    "nice story",
					ReplyTo: &webhookdto.MetaWebhookReplyTo{Story: &webhookdto.MetaWebhookStory{URL: "https://cdn/reply", ID: "s1"}},
				},
			},
			{
				Sender:    webhookdto.MetaWebhookParty{ID: "u1"},
				Recipient: webhookdto.MetaWebhookParty{ID: "p1"},
				Timestamp: 3000,
				Message:   &webhookdto.MetaWebhookMessage{Mid: "m3", IsDeleted: true},
			},
		},
	}

	events := ToLiveEvents("p1", entry)
	require.Len(t, events, 3)

	// ảnh thắng story mention, entry.time bù cho timestamp thiếu
	assert.Equal(t, "https://cdn/img", events[0].ImageURL)
	assert.Empty(t, events[0].StoryMentionURL)
	assert.Equal(t, int64(1000), events[0].CreatedTime)
	assert.Empty(t, events[0].BusinessId)

	assert.Equal(t, "https://cdn/reply", events[1].StoryReplyURL)
	assert.Equal(t, models.AttachmentStoryReply, events[1].Attachment().Kind)

	assert.True(t, events[2].IsDeleted)
}
