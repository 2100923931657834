package collab

import (
	"context"

	"lumio/config"
)

// Transport 聊天传输层：同步回复和异步提醒推送都走这一个口
type Transport interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// HTTPTransport Bot API 风格的传输适配器
type HTTPTransport struct {
	client *httpClient
}

func NewHTTPTransport() *HTTPTransport {
	cfg := config.Cfg
	return &HTTPTransport{
		client: newHTTPClient(cfg.TransportBaseURL, cfg.TransportToken, cfg.CollabTimeout),
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *HTTPTransport) SendMessage(ctx context.Context, chatID, text string) error {
	req := sendMessageRequest{ChatID: chatID, Text: text}
	_, err := t.client.postJSON(ctx, "/sendMessage", req, nil)
	return err
}
