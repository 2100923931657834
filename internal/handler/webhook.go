package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lumio/config"
	"lumio/internal/cache"
	"lumio/internal/dispatch"
	"lumio/internal/intent"
	"lumio/internal/model"
	"lumio/internal/session"
	pkgerrors "lumio/pkg/errors"
	"lumio/pkg/logger"
	"lumio/pkg/response"
)

var (
	dispatcher *dispatch.Dispatcher
	classifier *intent.Classifier
)

// Init 注入分发器，启动时调用一次
func Init(d *dispatch.Dispatcher) {
	dispatcher = d
	classifier = intent.NewClassifier(
		config.Cfg.Location(),
		config.Cfg.IntentMinScore,
		config.Cfg.DefaultLocation,
	)
}

type webhookMessageRequest struct {
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
}

type webhookMessageResponse struct {
	Reply     string `json:"reply"`
	Intent    string `json:"intent"`
	Code      string `json:"code,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// HandleMessage 处理一条入站消息：去重、分类、分发、回写会话
// POST /v1/webhook/messages
func HandleMessage(ctx context.Context, c *app.RequestContext) {
	var req webhookMessageRequest
	if err := c.Bind(&req); err != nil {
		response.Error(ctx, c, pkgerrors.InvalidRequest)
		return
	}
	if req.ChatID == "" || req.Text == "" {
		response.Error(ctx, c, pkgerrors.InvalidRequest)
		return
	}
	// 传输层没给消息 ID 时补一个，这类消息无法跨请求去重
	if req.MessageID == "" {
		req.MessageID = uuid.NewString()
	}

	// 传输层会重投同一条消息，messageID 维度去重
	first, err := cache.TryMarkMessageProcessing(ctx, req.MessageID)
	if err != nil {
		logger.Logger.Error("Failed to check message dedup",
			zap.String("message_id", req.MessageID),
			zap.Error(err),
		)
		response.Error(ctx, c, err)
		return
	}
	if !first {
		response.Success(ctx, c, webhookMessageResponse{Duplicate: true})
		return
	}

	utt := model.Utterance{
		MessageID:  req.MessageID,
		ChatID:     req.ChatID,
		SenderID:   req.SenderID,
		Text:       req.Text,
		ReceivedAt: time.Now(),
	}

	sess, err := session.Load(ctx, utt.ChatID)
	if err != nil {
		logger.Logger.Warn("Failed to load session, using empty",
			zap.String("chat_id", utt.ChatID),
			zap.Error(err),
		)
		sess = &model.Session{ChatID: utt.ChatID}
	}

	parsed := classifier.Classify(utt, sess)
	result := dispatcher.Dispatch(ctx, utt, parsed, sess)

	if err := session.Save(ctx, sess); err != nil {
		logger.Logger.Warn("Failed to save session",
			zap.String("chat_id", utt.ChatID),
			zap.Error(err),
		)
	}

	// 临时故障放开去重标记，传输层重投可以再试
	if !result.OK() && result.Code == pkgerrors.CollaboratorTransient.Code {
		if err := cache.UnmarkMessageProcessing(ctx, req.MessageID); err != nil {
			logger.Logger.Warn("Failed to unmark message", zap.String("message_id", req.MessageID), zap.Error(err))
		}
	} else {
		if err := cache.MarkMessageProcessed(ctx, req.MessageID); err != nil {
			logger.Logger.Warn("Failed to mark message processed", zap.String("message_id", req.MessageID), zap.Error(err))
		}
	}

	// 回复通过传输层异步送出，HTTP 响应体同时带一份给调用方排查
	if dispatcher.Transport != nil {
		if err := dispatcher.Transport.SendMessage(ctx, utt.ChatID, result.Text); err != nil {
			logger.Logger.Warn("Failed to send reply",
				zap.String("chat_id", utt.ChatID),
				zap.Error(err),
			)
		}
	}

	response.Success(ctx, c, webhookMessageResponse{
		Reply:  result.Text,
		Intent: string(parsed.Type),
		Code:   result.Code,
	})
}
