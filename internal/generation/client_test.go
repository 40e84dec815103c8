package generation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message_mate/internal/common"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate_response", r.URL.Path)
		assert.Equal(t, "Bearer id-token", r.Header.Get("authorization"))
		assert.Equal(t, "friendly", r.Header.Get("responseType"))
		assert.Equal(t, "c1", r.Header.Get("conversationId"))
		assert.Equal(t, "pt", r.Header.Get("pageAccessToken"))
		assert.Equal(t, "Shop", r.Header.Get("pageName"))
		assert.Equal(t, "p1", r.Header.Get("pageId"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"message":"Dạ shop còn hàng ạ"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	msg, err := c.Generate(context.Background(), Request{
		Authorization:   "Bearer id-token",
		ResponseType:    "friendly",
		ConversationID:  "c1",
		PageAccessToken: "pt",
		PageName:        "Shop",
		PageID:          "p1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dạ shop còn hàng ạ", msg)
}

func TestGenerateFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) },
		"no message":   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"answer":"x"}`)) },
		"not json":     func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`oops`)) },
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()
			_, err := NewClient(srv.URL, "", 0).Generate(context.Background(), Request{ConversationID: "c1"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrGenerationFailed))
			assert.Equal(t, "could not generate a response", err.Error())
		})
	}

	_, err := NewClient("", "", 0).Generate(context.Background(), Request{})
	assert.True(t, errors.Is(err, common.ErrGenerationFailed))
}
