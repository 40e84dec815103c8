package graph

import (
	"context"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// PageSummary là một trang trong /me/accounts
type PageSummary struct {
	ID          string
	Name        string
	Category    string
	AccessToken string
	PictureURL  string
}

// ListPages liệt kê các trang người dùng quản lý, theo thứ tự Graph trả về.
// Trang thiếu id hoặc access token bị bỏ qua.
func (c *Client) ListPages(ctx context.Context, userToken string) ([]PageSummary, error) {
	params := tokenParams(userToken)
	params.Set("fields", "id,name,category,access_token,picture{url}")

	pages := []PageSummary{}
	for i := 0; i < c.cfg.MaxPages; i++ {
		data, err := c.get(ctx, "me/accounts", params)
		if err != nil {
			return pages, err
		}
		doc := gjson.ParseBytes(data)
		doc.Get("data").ForEach(func(_, item gjson.Result) bool {
			page := PageSummary{
				ID:          item.Get("id").String(),
				Name:        item.Get("name").String(),
				Category:    item.Get("category").String(),
				AccessToken: item.Get("access_token").String(),
				PictureURL:  item.Get("picture.data.url").String(),
			}
			if page.ID == "" || page.AccessToken == "" {
				c.log.WithField("raw", item.Raw).Debug("🌐 [GRAPH] Bỏ qua trang thiếu id/access_token")
				return true
			}
			pages = append(pages, page)
			return true
		})

		after := nextCursor(doc)
		if after == "" {
			break
		}
		params.Set("after", after)
	}
	return pages, nil
}

// ResolveBusinessAccount trả về id tài khoản Instagram business gắn với trang ("" nếu không có)
func (c *Client) ResolveBusinessAccount(ctx context.Context, pageID, pageToken string) (string, error) {
	params := tokenParams(pageToken)
	params.Set("fields", "instagram_business_account")
	data, err := c.get(ctx, pageID, params)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(data, "instagram_business_account.id").String(), nil
}

// SubscribeApp đăng ký webhook tin nhắn của ứng dụng cho trang
func (c *Client) SubscribeApp(ctx context.Context, pageID, pageToken string) error {
	params := tokenParams(pageToken)
	params.Set("subscribed_fields", "messages,message_echoes,message_reads")
	data, err := c.postJSON(ctx, pageID+"/subscribed_apps", params, nil, true)
	if err != nil {
		return err
	}
	if !gjson.GetBytes(data, "success").Bool() {
		return classify(&APIError{Status: 200, Message: "subscribed_apps returned success=false"})
	}
	return nil
}

// ExchangeToken đổi user token ngắn hạn lấy long-lived token
func (c *Client) ExchangeToken(ctx context.Context, shortLived string) (string, time.Duration, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.cfg.AppID)
	params.Set("client_secret", c.cfg.AppSecret)
	params.Set("fb_exchange_token", shortLived)

	data, err := c.get(ctx, "oauth/access_token", params)
	if err != nil {
		return "", 0, err
	}
	doc := gjson.ParseBytes(data)
	token := doc.Get("access_token").String()
	if token == "" {
		return "", 0, classify(&APIError{Status: 200, Message: "token exchange returned no access_token"})
	}
	return token, time.Duration(doc.Get("expires_in").Int()) * time.Second, nil
}
