package model

import "time"

// IntentType 意图类别枚举
type IntentType string

const (
	IntentConverse       IntentType = "converse"        // 自由闲聊（兜底）
	IntentCalendarCreate IntentType = "calendar_create" // 新增行程
	IntentCalendarUpdate IntentType = "calendar_update" // 修改行程
	IntentCalendarDelete IntentType = "calendar_delete" // 删除行程
	IntentCalendarQuery  IntentType = "calendar_query"  // 查询行程
	IntentExpenseLog     IntentType = "expense_log"     // 记帐
	IntentExpenseReport  IntentType = "expense_report"  // 支出报表
	IntentWeatherQuery   IntentType = "weather_query"   // 天气
	IntentStockQuery     IntentType = "stock_query"     // 股价
	IntentReminderCreate IntentType = "reminder_create" // 建立提醒
	IntentReminderList   IntentType = "reminder_list"   // 列出提醒
	IntentReminderCancel IntentType = "reminder_cancel" // 取消提醒
	IntentNoteCreate     IntentType = "note_create"     // 笔记
	IntentTodoCreate     IntentType = "todo_create"     // 待办
	IntentTodoComplete   IntentType = "todo_complete"   // 完成待办
	IntentSearchQuery    IntentType = "search_query"    // 搜索
	IntentHelp           IntentType = "help"            // 帮助/开场
)

// Intent 对一条消息的结构化解释。每个类别只使用自己需要的字段；
// 必填字段缺失时分类器置 NeedsClarification，绝不带着猜测的参数进分发。
type Intent struct {
	Type IntentType `json:"type"`

	// 时间类字段（reminder/calendar）
	DueAt     *time.Time `json:"due_at,omitempty"`     // UTC
	Timezone  string     `json:"timezone,omitempty"`   // 解析时使用的时区，展示用
	RangeDays int        `json:"range_days,omitempty"` // calendar_query 的查询窗口

	// 记帐字段
	Amount   float64 `json:"amount,omitempty"`
	Category string  `json:"category,omitempty"`
	Note     string  `json:"note,omitempty"`

	// 查询类字段
	Location string `json:"location,omitempty"` // weather_query
	Ticker   string `json:"ticker,omitempty"`   // stock_query
	Query    string `json:"query,omitempty"`    // search_query / calendar_delete 匹配词

	// 提醒/笔记/待办内容
	Message    string `json:"message,omitempty"`
	ReminderID int64  `json:"reminder_id,omitempty"` // reminder_cancel
	TodoID     int64  `json:"todo_id,omitempty"`     // todo_complete

	// 参数不全时置位，分发器只会回澄清文案，不做任何动作
	NeedsClarification bool   `json:"needs_clarification,omitempty"`
	ClarifyPrompt      string `json:"clarify_prompt,omitempty"`

	// 原始文本，converse 及澄清回复需要
	RawText string `json:"raw_text,omitempty"`
}
