package graph

import (
	"context"

	"github.com/tidwall/gjson"
)

// SendResult là phản hồi của Send API
type SendResult struct {
	RecipientID string
	MessageID   string
}

type sendRequest struct {
	Recipient     sendRecipient `json:"recipient"`
	Message       sendMessage   `json:"message"`
	MessagingType string        `json:"messaging_type"`
}

type sendRecipient struct {
	ID string `json:"id"`
}

type sendMessage struct {
	Text string `json:"text"`
}

// SendMessage gửi tin nhắn văn bản trả lời người nhắn. Không retry để tránh gửi trùng.
func (c *Client) SendMessage(ctx context.Context, pageID, pageToken, recipientID, text string) (SendResult, error) {
	payload := sendRequest{
		Recipient:     sendRecipient{ID: recipientID},
		Message:       sendMessage{Text: text},
		MessagingType: "RESPONSE",
	}
	data, err := c.postJSON(ctx, pageID+"/messages", tokenParams(pageToken), payload, false)
	if err != nil {
		return SendResult{}, err
	}
	doc := gjson.ParseBytes(data)
	return SendResult{
		RecipientID: doc.Get("recipient_id").String(),
		MessageID:   doc.Get("message_id").String(),
	}, nil
}
