package model

import "time"

// Note 随手笔记
type Note struct {
	BaseModel
	ChatID  string `gorm:"type:varchar(64);not null;index:idx_notes_chat" json:"chat_id"`
	Content string `gorm:"type:text;not null" json:"content"`
}

func (Note) TableName() string {
	return "notes"
}

// Todo 待办事项
type Todo struct {
	BaseModel
	ChatID  string     `gorm:"type:varchar(64);not null;index:idx_todos_chat" json:"chat_id"`
	Content string     `gorm:"type:text;not null" json:"content"`
	Done    bool       `gorm:"not null;default:false" json:"done"`
	DoneAt  *time.Time `json:"done_at,omitempty"`
}

func (Todo) TableName() string {
	return "todos"
}
