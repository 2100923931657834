package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lumio/internal/model"
	pkgerrors "lumio/pkg/errors"
	"lumio/storage/database"
)

// NoteService 笔记和待办
type NoteService struct{}

var (
	noteService *NoteService
	noteOnce    sync.Once
)

func Note() *NoteService {
	noteOnce.Do(func() {
		noteService = &NoteService{}
	})
	return noteService
}

func (s *NoteService) CreateNote(ctx context.Context, chatID, content string) (*model.Note, error) {
	note := &model.Note{ChatID: chatID, Content: content}
	if err := database.DB().WithContext(ctx).Create(note).Error; err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

func (s *NoteService) CreateTodo(ctx context.Context, chatID, content string) (*model.Todo, error) {
	todo := &model.Todo{ChatID: chatID, Content: content}
	if err := database.DB().WithContext(ctx).Create(todo).Error; err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	return todo, nil
}

// ListOpenTodos 按创建顺序列出未完成待办
func (s *NoteService) ListOpenTodos(ctx context.Context, chatID string) ([]*model.Todo, error) {
	var todos []*model.Todo
	err := database.DB().WithContext(ctx).
		Where("chat_id = ? AND done = false", chatID).
		Order("id ASC").
		Find(&todos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// CompleteTodo 按会话内序号（ListOpenTodos 的位置，从 1 起）完成一条待办
func (s *NoteService) CompleteTodo(ctx context.Context, chatID string, ordinal int) (*model.Todo, error) {
	todos, err := s.ListOpenTodos(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if ordinal < 1 || ordinal > len(todos) {
		return nil, pkgerrors.TodoNotFound
	}

	todo := todos[ordinal-1]
	now := time.Now()

	res := database.DB().WithContext(ctx).
		Model(&model.Todo{}).
		Where("id = ? AND done = false", todo.ID).
		Updates(map[string]interface{}{
			"done":    true,
			"done_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to complete todo: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.TodoNotFound
	}

	todo.Done = true
	todo.DoneAt = &now
	return todo, nil
}
