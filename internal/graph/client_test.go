package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:           srv.URL,
		RatePerSecond:     1000,
		Burst:             100,
		MaxRetries:        2,
		MaxPages:          5,
		RecencyDays:       7,
		DetailConcurrency: 4,
		Location:          time.UTC,
	}, WithClock(func() time.Time { return fixedNow }))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestFetchConversations(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page1/conversations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "instagram", r.URL.Query().Get("platform"))
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		if r.URL.Query().Get("after") == "" {
			writeJSON(w, 200, `{"data":[
				{"id":"c1","updated_time":"2024-03-09T12:00:00+0000"},
				{"id":"c2"},
				{"updated_time":"2024-03-09T12:00:00+0000"},
				{"id":"c3","updated_time":"not a time"}
			],"paging":{"cursors":{"after":"cur1"},"next":"https://graph/next"}}`)
			return
		}
		assert.Equal(t, "cur1", r.URL.Query().Get("after"))
		writeJSON(w, 200, `{"data":[{"id":"c4","updated_time":"2024-02-01T12:00:00+0000"}],"paging":{"cursors":{"after":"cur2"}}}`)
	})
	c := newTestClient(t, mux)

	convs, err := c.FetchConversations(context.Background(), "page1", "tok", models.PlatformInstagram, ConversationQuery{})
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "c1", convs[0].ID)
	assert.True(t, convs[0].InDayRange)
	assert.Equal(t, "c4", convs[1].ID)
	assert.False(t, convs[1].InDayRange)
}

func TestFetchConversationsTargeted(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u42", r.URL.Query().Get("user_id"))
		assert.Equal(t, "messenger", r.URL.Query().Get("platform"))
		writeJSON(w, 200, `{"data":[]}`)
	}))
	convs, err := c.FetchConversations(context.Background(), "page1", "tok", models.PlatformFacebook, ConversationQuery{UserID: "u42"})
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestAuthErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 400, `{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`)
	}))

	convs, err := c.FetchConversations(context.Background(), "page1", "tok", models.PlatformFacebook, ConversationQuery{})
	require.Error(t, err)
	assert.Empty(t, convs)
	assert.True(t, IsAuthError(err))
	assert.True(t, errors.Is(err, common.ErrGraphAuth))
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 190, apiErr.Code)
}

func TestTransientErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, 503, `{"error":{"message":"try later","code":2}}`)
			return
		}
		writeJSON(w, 200, `{"instagram_business_account":{"id":"ig9"}}`)
	}))

	id, err := c.ResolveBusinessAccount(context.Background(), "page1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "ig9", id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchMessagesFanOut(t *testing.T) {
	var detailCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/conv1/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1709900000", r.URL.Query().Get("since"))
		writeJSON(w, 200, `{"data":[
			{"id":"m3","created_time":"2024-03-09T09:00:00+0000"},
			{"id":"m1","created_time":"2024-03-08T09:00:00+0000"},
			{"id":"m2","created_time":"2024-03-08T10:00:00+0000"},
			{"id":"bad","created_time":"2024-03-08T11:00:00+0000"},
			{"id":"gone","created_time":"2024-03-08T12:00:00+0000"}
		]}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		detailCalls.Add(1)
		id := strings.TrimPrefix(r.URL.Path, "/")
		switch id {
		case "m1", "m2", "m3":
			writeJSON(w, 200, fmt.Sprintf(`{"id":%q,"message":"text %s","from":{"id":"u1"},"to":{"data":[{"id":"page1"}]}}`, id, id))
		case "bad":
			writeJSON(w, 200, `{"id":"bad","message":"x","from":{"id":"u1"},"to":{"data":[{"id":"a"},{"id":"b"}]}}`)
		default:
			writeJSON(w, 404, `{"error":{"message":"not found","code":100}}`)
		}
	})
	c := newTestClient(t, mux)

	since := time.Unix(1709900000, 0)
	batch, err := c.FetchMessages(context.Background(), "conv1", "tok", models.PlatformFacebook, &since, "")
	require.NoError(t, err)
	assert.Equal(t, int32(5), detailCalls.Load())
	assert.Equal(t, 5, batch.Listed)
	assert.Equal(t, 2, batch.Failures)
	assert.Nil(t, batch.Paging)

	require.Len(t, batch.Messages, 3)
	assert.Equal(t, "m1", batch.Messages[0].ID)
	assert.Equal(t, "m2", batch.Messages[1].ID)
	assert.Equal(t, "m3", batch.Messages[2].ID)
	assert.Equal(t, []bool{true, false, true}, []bool{batch.Messages[0].DayStarter, batch.Messages[1].DayStarter, batch.Messages[2].DayStarter})
}

func TestSendMessage(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/page1/messages", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "RESPONSE", body["messaging_type"])
		assert.Equal(t, map[string]interface{}{"id": "u1"}, body["recipient"])
		assert.Equal(t, map[string]interface{}{"text": "cảm ơn"}, body["message"])
		writeJSON(w, 200, `{"recipient_id":"u1","message_id":"mid.1"}`)
	}))

	res, err := c.SendMessage(context.Background(), "page1", "tok", "u1", "cảm ơn")
	require.NoError(t, err)
	assert.Equal(t, SendResult{RecipientID: "u1", MessageID: "mid.1"}, res)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendMessageNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 500, `{"error":{"message":"boom","code":1}}`)
	}))
	_, err := c.SendMessage(context.Background(), "page1", "tok", "u1", "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrGraphUnavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestListPages(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/accounts", r.URL.Path)
		writeJSON(w, 200, `{"data":[
			{"id":"p1","name":"Shop","category":"Retail","access_token":"pt1","picture":{"data":{"url":"https://pic/1"}}},
			{"id":"p2","name":"No token"}
		]}`)
	}))
	pages, err := c.ListPages(context.Background(), "user")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, PageSummary{ID: "p1", Name: "Shop", Category: "Retail", AccessToken: "pt1", PictureURL: "https://pic/1"}, pages[0])
}

func TestFetchProfileJoinsNames(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"first_name":"Lan","last_name":"Nguyen","profile_pic":"https://pic/u"}`)
	}))
	p, err := c.FetchProfile(context.Background(), "u1", "tok", models.PlatformFacebook)
	require.NoError(t, err)
	assert.Equal(t, Profile{ID: "u1", Name: "Lan Nguyen", PictureURL: "https://pic/u"}, p)
}

func TestExchangeToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "short", r.URL.Query().Get("fb_exchange_token"))
		writeJSON(w, 200, `{"access_token":"long","expires_in":5184000}`)
	}))
	token, ttl, err := c.ExchangeToken(context.Background(), "short")
	require.NoError(t, err)
	assert.Equal(t, "long", token)
	assert.Equal(t, 60*24*time.Hour, ttl)
}
