package model

import "time"

// Utterance 一条入站消息，接收后不可变
type Utterance struct {
	MessageID  string    `json:"message_id"` // 传输层消息 ID，用于幂等去重
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
	Command    string    `json:"command,omitempty"` // 显式斜杠指令名（不含 '/'），无则为空
}

// Session 单个会话的上下文，显式加载/保存，不放进程级全局
type Session struct {
	ChatID          string    `json:"chat_id"`
	DefaultLocation string    `json:"default_location,omitempty"` // 天气查询缺省地点
	LastIntent      string    `json:"last_intent,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ActionResult 分发结果。Err 为 nil 表示成功，Text 一定是可直接回给用户的文案。
type ActionResult struct {
	Text string `json:"text"`
	Code string `json:"code,omitempty"` // 失败时的错误码，来自 pkg/errors
}

// OK 返回该结果是否为成功结果
func (r ActionResult) OK() bool {
	return r.Code == ""
}
