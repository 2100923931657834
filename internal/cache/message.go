package cache

import (
	"context"
	"fmt"
	"time"

	"lumio/storage/redis"
)

const (
	messageProcessedPrefix = "message:processed"
	reminderNudgeChannel   = "reminder:nudge"

	processedTTL = 48 * time.Hour
)

// TryMarkMessageProcessing 用 SETNX 原子标记消息正在处理。
// 返回 true 表示首次处理，false 表示重复消息。
func TryMarkMessageProcessing(ctx context.Context, messageID string) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	result, err := redis.Client().SetNX(ctx, key, "processing", processedTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 处理失败时清除标记，允许同一消息重投
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 处理成功时改写标记并刷新 TTL
func MarkMessageProcessed(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Set(ctx, key, "completed", processedTTL).Err()
}

// NudgeScheduler 新建提醒后通知调度器立即重读待投递集合。
// 发布失败不影响落库结果，调度器的轮询兜底会补上。
func NudgeScheduler(ctx context.Context, publicID int64) error {
	channel := redis.Key(reminderNudgeChannel)
	return redis.Client().Publish(ctx, channel, fmt.Sprintf("%d", publicID)).Err()
}

// NudgeChannel 调度器订阅用的完整频道名
func NudgeChannel() string {
	return redis.Key(reminderNudgeChannel)
}
