package collab

import (
	"context"

	"lumio/config"
	"lumio/internal/model"
	"lumio/pkg/errors"
)

// Persona 人格对话协作方。人格内容如何生成不在本服务范围内，
// 这里只约定 chat completions 风格的请求边界。
type Persona interface {
	Converse(ctx context.Context, sess *model.Session, text string) (string, error)
}

// HTTPPersona OpenAI 兼容接口的对话适配器
type HTTPPersona struct {
	client *httpClient
	model  string
}

func NewHTTPPersona() *HTTPPersona {
	cfg := config.Cfg
	return &HTTPPersona{
		client: newHTTPClient(cfg.PersonaBaseURL, cfg.PersonaToken, cfg.CollabTimeout),
		model:  cfg.PersonaModel,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *HTTPPersona) Converse(ctx context.Context, sess *model.Session, text string) (string, error) {
	req := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: text},
		},
	}

	var resp chatResponse
	if _, err := p.client.postJSON(ctx, "/v1/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.CollaboratorFatal
	}
	return resp.Choices[0].Message.Content, nil
}
