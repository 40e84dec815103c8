// Package graph là client cho Meta Graph API (Messenger và Instagram Direct).
// Mọi lời gọi đi qua rate limiter và circuit breaker; lỗi tạm thời được retry với exponential backoff.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"message_mate/config"
	"message_mate/internal/common"
	"message_mate/internal/logger"
)

// Config chứa cấu hình của Graph client
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RatePerSecond     float64
	Burst             int
	MaxRetries        int
	MaxPages          int // Số trang cursor tối đa mỗi lần list
	RecencyDays       int // Cửa sổ inDayRange
	DetailConcurrency int // Số lời gọi chi tiết tin nhắn song song
	Location          *time.Location
	AppID             string
	AppSecret         string
}

// ConfigFrom dựng Config từ cấu hình ứng dụng
func ConfigFrom(c *config.Configuration) Config {
	loc, err := time.LoadLocation(c.SyncTimezone)
	if err != nil {
		loc = time.Local
	}
	return Config{
		BaseURL:           c.GraphBaseURL,
		Timeout:           time.Duration(c.GraphTimeoutSeconds) * time.Second,
		RatePerSecond:     float64(c.GraphRatePerSecond),
		Burst:             c.GraphBurst,
		MaxRetries:        c.GraphMaxRetries,
		MaxPages:          c.SyncMaxPages,
		RecencyDays:       c.SyncRecencyDays,
		DetailConcurrency: c.SyncDetailConcurrency,
		Location:          loc,
		AppID:             c.MetaAppID,
		AppSecret:         c.MetaAppSecret,
	}
}

// Client gọi Graph API
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	now        func() time.Time
	log        *logrus.Entry
}

// Option tùy chỉnh Client
type Option func(*Client)

// WithHTTPClient thay http.Client mặc định
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithClock thay đồng hồ dùng để tính inDayRange
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient tạo Graph client
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.RecencyDays <= 0 {
		cfg.RecencyDays = 30
	}
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 8
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		now:        time.Now,
		log:        logger.WithModule("graph"),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Lỗi nghiệp vụ (token, tham số) không làm mở breaker
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Warn("🌐 [GRAPH] Circuit breaker đổi trạng thái")
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location trả về múi giờ dùng để tính dayStarter
func (c *Client) Location() *time.Location {
	return c.cfg.Location
}

// APIError là lỗi Graph trả về trong body {"error": {...}}
type APIError struct {
	Status  int
	Code    int
	Subcode int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph: status %d code %d: %s", e.Status, e.Code, e.Message)
}

// Temporary: lỗi server hoặc bị giới hạn tốc độ, có thể thử lại
func (e *APIError) Temporary() bool {
	return e.Status >= 500 || e.throttled()
}

func (e *APIError) throttled() bool {
	switch e.Code {
	case 4, 17, 32, 613:
		return true
	}
	return e.Status == http.StatusTooManyRequests
}

// classify gắn APIError vào lỗi chuẩn của ứng dụng
func classify(apiErr *APIError) error {
	switch {
	case apiErr.Code == 190 || apiErr.Status == http.StatusUnauthorized:
		return common.Wrap(common.ErrGraphAuth, apiErr)
	case apiErr.throttled():
		return common.Wrap(common.ErrGraphThrottled, apiErr)
	default:
		return common.Wrap(common.ErrGraphUnavailable, apiErr)
	}
}

// isTransient: lỗi mạng, 5xx, hoặc bị giới hạn
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return errors.Is(err, common.ErrGraphUnavailable)
}

// IsAuthError cho biết lỗi là token hết hạn / bị thu hồi
func IsAuthError(err error) bool {
	return errors.Is(err, common.ErrGraphAuth)
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// roundTrip thực hiện một request HTTP, không retry
func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.Wrap(common.ErrGraphUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.Wrap(common.ErrGraphUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if e := gjson.GetBytes(data, "error"); e.Exists() {
			apiErr.Code = int(e.Get("code").Int())
			apiErr.Subcode = int(e.Get("error_subcode").Int())
			apiErr.Type = e.Get("type").String()
			if msg := e.Get("message").String(); msg != "" {
				apiErr.Message = msg
			}
		}
		return nil, classify(apiErr)
	}
	return data, nil
}

// do gọi Graph qua limiter và breaker; retry=false cho thao tác không idempotent (gửi tin)
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body []byte, retry bool) ([]byte, error) {
	endpoint := c.endpoint(path, params)

	op := func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.roundTrip(ctx, method, endpoint, body)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, backoff.Permanent(common.Wrap(common.ErrGraphUnavailable, err))
			}
			if !retry || !isTransient(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return res.([]byte), nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	retries := c.cfg.MaxRetries
	if retries < 0 || !retry {
		retries = 0
	}
	return backoff.RetryWithData(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, params, nil, true)
}

func (c *Client) postJSON(ctx context.Context, path string, params url.Values, payload interface{}, retry bool) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, common.Wrap(common.ErrInvalidFormat, err)
		}
	}
	return c.do(ctx, http.MethodPost, path, params, body, retry)
}

func tokenParams(accessToken string) url.Values {
	params := url.Values{}
	params.Set("access_token", accessToken)
	return params
}

// nextCursor trả về cursor after nếu Graph báo còn trang tiếp theo
func nextCursor(doc gjson.Result) string {
	if doc.Get("paging.next").String() == "" {
		return ""
	}
	return doc.Get("paging.cursors.after").String()
}
