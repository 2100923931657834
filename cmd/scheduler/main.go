package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lumio/config"
	"lumio/internal/cache"
	"lumio/internal/collab"
	"lumio/internal/schedule"
	"lumio/internal/service"
	"lumio/pkg/logger"
	"lumio/storage"
	"lumio/storage/redis"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
	)

	scheduler := schedule.NewReminderScheduler(service.Reminder(), collab.NewHTTPTransport())

	go runNudgeSubscriber(ctx, scheduler)
	go runPurgeLoop(ctx)

	if err := scheduler.Run(ctx); err != nil {
		logger.Logger.Fatal("Reminder scheduler exited", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service shutting down gracefully")
}

// runNudgeSubscriber 订阅新提醒通知，把 pub/sub 消息转成调度器唤醒。
// 订阅断开只是丢失即时性，调度器的轮询兜底仍然有效。
func runNudgeSubscriber(ctx context.Context, scheduler *schedule.ReminderScheduler) {
	for {
		if ctx.Err() != nil {
			return
		}

		sub := redis.Client().Subscribe(ctx, cache.NudgeChannel())
		ch := sub.Channel()

		logger.Logger.Info("Subscribed to reminder nudges",
			zap.String("channel", cache.NudgeChannel()),
		)

	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				logger.Logger.Debug("Received reminder nudge", zap.String("payload", msg.Payload))
				scheduler.Notify()
			}
		}

		_ = sub.Close()
		logger.Logger.Warn("Nudge subscription lost, resubscribing")

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// runPurgeLoop 周期性清理保留窗口之外的终态提醒
func runPurgeLoop(ctx context.Context) {
	interval := time.Hour
	if config.Cfg.Environment == "development" {
		interval = time.Minute
		logger.Logger.Info("Purge loop running in development mode with 1m interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			if _, err := service.Reminder().PurgeTerminal(runCtx); err != nil {
				logger.Logger.Error("Purge terminal reminders failed", zap.Error(err))
			}
			cancel()
		}
	}
}
