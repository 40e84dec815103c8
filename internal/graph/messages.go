package graph

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/parser"
)

const messageDetailFields = "id,created_time,from,to,message,attachments,story"

// Paging là vị trí cursor sau lần fetch
type Paging struct {
	After string
}

// MessageBatch là kết quả fetch tin nhắn của một hội thoại
type MessageBatch struct {
	Messages []parser.ParsedMessage // Tăng dần theo createdTime, đã tính dayStarter
	Paging   *Paging                // nil nếu đã hết trang
	Listed   int                    // Số id đã list
	Failures int                    // Số tin bị bỏ do lỗi chi tiết hoặc payload không hợp lệ
}

type listedMessage struct {
	id          string
	createdTime string
}

// FetchMessages lấy tin nhắn của hội thoại từ watermark since (nil = lần đầu) và cursor.
// Mỗi id được lấy chi tiết song song; batch chỉ hoàn tất khi mọi lời gọi chi tiết đã xong.
func (c *Client) FetchMessages(ctx context.Context, conversationID, accessToken string, platform models.Platform, since *time.Time, cursor string) (MessageBatch, error) {
	listed, paging, err := c.listMessages(ctx, conversationID, accessToken, since, cursor)
	if err != nil {
		return MessageBatch{Paging: paging}, err
	}

	p := parser.ForPlatform(platform)
	parsed := make([]*parser.ParsedMessage, len(listed))
	var failures atomic.Int64

	var g errgroup.Group
	g.SetLimit(c.cfg.DetailConcurrency)
	for i, item := range listed {
		i, item := i, item
		g.Go(func() error {
			params := tokenParams(accessToken)
			params.Set("fields", messageDetailFields)
			data, err := c.get(ctx, item.id, params)
			if err != nil {
				failures.Add(1)
				c.log.WithError(err).WithField("message_id", item.id).Warn("🌐 [GRAPH] Lỗi lấy chi tiết tin nhắn, bỏ qua")
				return nil
			}
			created := item.createdTime
			if created == "" {
				created = gjson.GetBytes(data, "created_time").String()
			}
			msg, ok := p.Parse(data, item.id, created)
			if !ok {
				failures.Add(1)
				c.log.WithField("message_id", item.id).Debug("🌐 [GRAPH] Payload tin nhắn không hợp lệ, bỏ qua")
				return nil
			}
			parsed[i] = msg
			return nil
		})
	}
	_ = g.Wait()

	batch := MessageBatch{
		Messages: make([]parser.ParsedMessage, 0, len(listed)),
		Paging:   paging,
		Listed:   len(listed),
		Failures: int(failures.Load()),
	}
	for _, m := range parsed {
		if m != nil {
			batch.Messages = append(batch.Messages, *m)
		}
	}
	parser.MarkDayStarters(batch.Messages, c.cfg.Location)
	return batch, nil
}

// listMessages đi theo cursor tới hết (tối đa MaxPages), trả về paging còn lại nếu dừng sớm
func (c *Client) listMessages(ctx context.Context, conversationID, accessToken string, since *time.Time, cursor string) ([]listedMessage, *Paging, error) {
	params := tokenParams(accessToken)
	params.Set("fields", "id,created_time")
	if since != nil && !since.IsZero() {
		params.Set("since", strconv.FormatInt(since.Unix(), 10))
	}
	if cursor != "" {
		params.Set("after", cursor)
	}

	var listed []listedMessage
	for i := 0; i < c.cfg.MaxPages; i++ {
		data, err := c.get(ctx, conversationID+"/messages", params)
		if err != nil {
			return nil, nil, err
		}
		doc := gjson.ParseBytes(data)
		doc.Get("data").ForEach(func(_, item gjson.Result) bool {
			if id := item.Get("id").String(); id != "" {
				listed = append(listed, listedMessage{id: id, createdTime: item.Get("created_time").String()})
			}
			return true
		})

		after := nextCursor(doc)
		if after == "" {
			return listed, nil, nil
		}
		params.Set("after", after)
	}
	return listed, &Paging{After: params.Get("after")}, nil
}
