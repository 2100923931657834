package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lumio/config"
	"lumio/internal/model"
	pkgerrors "lumio/pkg/errors"
	"lumio/pkg/logger"
	"lumio/pkg/snowflake"
	"lumio/storage/database"
)

// ReminderService 提醒的唯一写入口。状态迁移全部带条件更新，
// 并发下同一提醒只会有一条迁移成功。
type ReminderService struct{}

var (
	reminderService *ReminderService
	reminderOnce    sync.Once
)

func Reminder() *ReminderService {
	reminderOnce.Do(func() {
		reminderService = &ReminderService{}
	})
	return reminderService
}

// Create 落库一条待投递提醒。超过单会话待投递上限时拒绝。
func (s *ReminderService) Create(ctx context.Context, chatID, message string, dueAt time.Time, timezone string) (*model.Reminder, error) {
	db := database.DB().WithContext(ctx)

	var pending int64
	if err := db.Model(&model.Reminder{}).
		Where("chat_id = ? AND status = ?", chatID, model.ReminderStatusPending).
		Count(&pending).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending reminders: %w", err)
	}
	if pending >= int64(config.Cfg.MaxPendingPerChat) {
		return nil, pkgerrors.ReminderLimitReached
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reminder id: %w", err)
	}

	reminder := &model.Reminder{
		PublicID: publicID,
		ChatID:   chatID,
		Message:  message,
		DueAt:    dueAt.UTC(),
		Timezone: timezone,
		Status:   model.ReminderStatusPending,
	}

	if err := db.Create(reminder).Error; err != nil {
		logger.Logger.Error("Failed to create reminder",
			zap.String("chat_id", chatID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	return reminder, nil
}

// Get 按对外 ID 查询
func (s *ReminderService) Get(ctx context.Context, publicID int64) (*model.Reminder, error) {
	var reminder model.Reminder
	err := database.DB().WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&reminder).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.ReminderNotFound
		}
		return nil, fmt.Errorf("failed to query reminder: %w", err)
	}
	return &reminder, nil
}

// ListPending 列出待投递提醒，按到期时间升序，同到期按创建先后。
// chatID 为空时列出所有会话的，供调度器启动时重建内存视图。
func (s *ReminderService) ListPending(ctx context.Context, chatID string) ([]*model.Reminder, error) {
	db := database.DB().WithContext(ctx).
		Where("status = ?", model.ReminderStatusPending)
	if chatID != "" {
		db = db.Where("chat_id = ?", chatID)
	}

	var reminders []*model.Reminder
	if err := db.Order("due_at ASC, id ASC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending reminders: %w", err)
	}
	return reminders, nil
}

// ListDueBefore 列出到期时间不晚于 before 的待投递提醒，排序同 ListPending
func (s *ReminderService) ListDueBefore(ctx context.Context, before time.Time) ([]*model.Reminder, error) {
	var reminders []*model.Reminder
	err := database.DB().WithContext(ctx).
		Where("status = ? AND due_at <= ?", model.ReminderStatusPending, before.UTC()).
		Order("due_at ASC, id ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reminders, nil
}

// Cancel 取消一条待投递提醒。已结束的提醒取消失败，返回当前状态供上层提示。
func (s *ReminderService) Cancel(ctx context.Context, publicID int64) (*model.Reminder, error) {
	reminder, err := s.Get(ctx, publicID)
	if err != nil {
		return nil, err
	}

	res := database.DB().WithContext(ctx).
		Model(&model.Reminder{}).
		Where("public_id = ? AND status = ?", publicID, model.ReminderStatusPending).
		Update("status", model.ReminderStatusCancelled)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to cancel reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// 查询和更新之间状态可能已经被调度器改掉
		return reminder, pkgerrors.ReminderNotPending
	}

	reminder.Status = model.ReminderStatusCancelled
	return reminder, nil
}

// MarkFired 投递成功后标记。仅 pending 可迁移，重复投递的那次会拿到 false。
func (s *ReminderService) MarkFired(ctx context.Context, publicID int64, firedAt time.Time) (bool, error) {
	res := database.DB().WithContext(ctx).
		Model(&model.Reminder{}).
		Where("public_id = ? AND status = ?", publicID, model.ReminderStatusPending).
		Updates(map[string]interface{}{
			"status":   model.ReminderStatusFired,
			"fired_at": firedAt.UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark reminder fired: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed 重试耗尽后标记
func (s *ReminderService) MarkFailed(ctx context.Context, publicID int64) (bool, error) {
	res := database.DB().WithContext(ctx).
		Model(&model.Reminder{}).
		Where("public_id = ? AND status = ?", publicID, model.ReminderStatusPending).
		Update("status", model.ReminderStatusFailed)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark reminder failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IncrementAttempt 记录一次投递尝试，返回累计次数
func (s *ReminderService) IncrementAttempt(ctx context.Context, publicID int64) (int, error) {
	db := database.DB().WithContext(ctx)

	res := db.Model(&model.Reminder{}).
		Where("public_id = ? AND status = ?", publicID, model.ReminderStatusPending).
		Update("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to increment reminder attempts: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, pkgerrors.ReminderNotPending
	}

	var reminder model.Reminder
	if err := db.Where("public_id = ?", publicID).First(&reminder).Error; err != nil {
		return 0, fmt.Errorf("failed to reload reminder: %w", err)
	}
	return reminder.Attempts, nil
}

// PurgeTerminal 清理保留窗口之外的终态提醒，返回删除条数
func (s *ReminderService) PurgeTerminal(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-config.Cfg.ReminderAuditRetention)

	res := database.DB().WithContext(ctx).
		Where("status <> ? AND updated_at < ?", model.ReminderStatusPending, cutoff).
		Delete(&model.Reminder{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge terminal reminders: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		logger.Logger.Info("Purged terminal reminders",
			zap.Int64("count", res.RowsAffected),
			zap.Time("cutoff", cutoff),
		)
	}
	return res.RowsAffected, nil
}
