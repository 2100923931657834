package session

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"

	"lumio/internal/model"
	"lumio/storage/redis"
)

const (
	sessionPrefix = "session"
	sessionTTL    = 24 * time.Hour
)

// Load 读取会话上下文，不存在时返回带默认值的新会话
func Load(ctx context.Context, chatID string) (*model.Session, error) {
	key := redis.Key(sessionPrefix, chatID)

	data, err := redis.Client().Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return &model.Session{ChatID: chatID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess model.Session
	if err := sonic.Unmarshal(data, &sess); err != nil {
		// 序列化格式变更后的旧数据直接作废
		return &model.Session{ChatID: chatID}, nil
	}
	return &sess, nil
}

// Save 回写会话上下文并刷新 TTL
func Save(ctx context.Context, sess *model.Session) error {
	sess.UpdatedAt = time.Now()

	data, err := sonic.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := redis.Key(sessionPrefix, sess.ChatID)
	if err := redis.Client().Set(ctx, key, data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
