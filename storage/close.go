package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lumio/pkg/logger"
	"lumio/storage/database"
	"lumio/storage/redis"
)

// Close 优雅关闭所有存储连接
// 关闭顺序：Redis -> Database，数据库最后关闭以保证持久化完成
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	if err := redis.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close Redis connection", zap.Error(err))
	} else {
		logger.Logger.Info("Redis connection closed successfully")
	}

	if err := database.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close database connection", zap.Error(err))
	} else {
		logger.Logger.Info("Database connection closed successfully")
	}

	logger.Logger.Info("All storage connections closed")
}
