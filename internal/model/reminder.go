package model

import (
	"time"
)

// ReminderStatus 提醒状态枚举
type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "pending"   // 待投递
	ReminderStatusFired     ReminderStatus = "fired"     // 已投递
	ReminderStatusFailed    ReminderStatus = "failed"    // 投递重试耗尽
	ReminderStatusCancelled ReminderStatus = "cancelled" // 已取消
)

// Reminder 提醒记录。存储层是唯一权威来源，调度器只持有派生的内存视图。
// 状态迁移：Pending -> Fired | Failed | Cancelled。
// Fired/Failed 仅由调度器写入，Cancelled 仅由分发器写入。
type Reminder struct {
	BaseModel
	PublicID int64          `gorm:"uniqueIndex;not null" json:"public_id"` // 对外暴露的 snowflake ID
	ChatID   string         `gorm:"type:varchar(64);not null;index:idx_reminders_chat" json:"chat_id"`
	Message  string         `gorm:"type:text;not null" json:"message"`
	DueAt    time.Time      `gorm:"not null;index:idx_reminders_due" json:"due_at"`
	Timezone string         `gorm:"type:varchar(64);not null" json:"timezone"` // 原始时区，仅用于展示
	Status   ReminderStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_reminders_due" json:"status"`
	Attempts int            `gorm:"type:smallint;not null;default:0" json:"attempts"`
	FiredAt  *time.Time     `json:"fired_at,omitempty"`
}

// TableName 指定表名
func (Reminder) TableName() string {
	return "reminders"
}

// Terminal 返回提醒是否已到达终态
func (r *Reminder) Terminal() bool {
	return r.Status != ReminderStatusPending
}
