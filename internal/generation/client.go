// Package generation gọi dịch vụ sinh câu trả lời tự động.
package generation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"message_mate/internal/common"
	"message_mate/internal/logger"
)

// Request là dữ liệu một lần sinh câu trả lời; truyền đi bằng header
type Request struct {
	Authorization   string // Firebase ID token của người dùng
	ResponseType    string
	ConversationID  string
	PageAccessToken string
	PageName        string
	PageID          string
}

// Client gọi POST {baseURL}/generate_response
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient tạo Client; timeout <= 0 dùng 60 giây
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate trả về câu trả lời; mọi lỗi đều quy về common.ErrGenerationFailed
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	log := logger.WithModule("generation").WithField("conversation_id", req.ConversationID)
	if c.baseURL == "" {
		return "", common.Wrap(common.ErrGenerationFailed, fmt.Errorf("generation URL is not configured"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate_response", nil)
	if err != nil {
		return "", common.Wrap(common.ErrGenerationFailed, err)
	}
	authorization := req.Authorization
	if authorization == "" {
		authorization = c.apiKey
	}
	httpReq.Header.Set("authorization", authorization)
	httpReq.Header.Set("responseType", req.ResponseType)
	httpReq.Header.Set("conversationId", req.ConversationID)
	httpReq.Header.Set("pageAccessToken", req.PageAccessToken)
	httpReq.Header.Set("pageName", req.PageName)
	httpReq.Header.Set("pageId", req.PageID)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.WithError(err).Error("✨ [GENERATION] Lỗi khi gọi dịch vụ sinh câu trả lời")
		return "", common.Wrap(common.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", common.Wrap(common.ErrGenerationFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Error("✨ [GENERATION] Dịch vụ trả về lỗi")
		return "", common.Wrap(common.ErrGenerationFailed, fmt.Errorf("generation service returned status %d", resp.StatusCode))
	}

	message := gjson.GetBytes(body, "message")
	if message.Type != gjson.String || message.String() == "" {
		return "", common.Wrap(common.ErrGenerationFailed, fmt.Errorf("generation response has no message"))
	}
	return message.String(), nil
}
