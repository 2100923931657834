package schedule

// 提醒调度器：内存堆只是派生视图，存储层才是权威。
// 每次唤醒（到期、轮询、外部通知）都以条件更新竞争状态迁移，
// 多实例同时跑也只会有一次投递成功。

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lumio/config"
	"lumio/internal/model"
	pkgerrors "lumio/pkg/errors"
	"lumio/pkg/logger"
)

// Store 调度器需要的提醒存储操作子集
type Store interface {
	ListPending(ctx context.Context, chatID string) ([]*model.Reminder, error)
	Get(ctx context.Context, publicID int64) (*model.Reminder, error)
	MarkFired(ctx context.Context, publicID int64, firedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, publicID int64) (bool, error)
	IncrementAttempt(ctx context.Context, publicID int64) (int, error)
}

// Sender 投递出口
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// ReminderScheduler 单 goroutine 拥有堆，外部只通过 Notify 唤醒
type ReminderScheduler struct {
	store  Store
	sender Sender
	log    *zap.Logger

	pollInterval    time.Duration
	deliveryTimeout time.Duration
	maxAttempts     int
	retryBackoff    time.Duration

	notify chan struct{}

	pending dueHeap
	// 投递失败后的退避时间，重建堆时生效
	notBefore map[int64]time.Time
}

func NewReminderScheduler(store Store, sender Sender) *ReminderScheduler {
	cfg := config.Cfg
	return &ReminderScheduler{
		store:           store,
		sender:          sender,
		log:             logger.Logger,
		pollInterval:    cfg.SchedulerPollInterval,
		deliveryTimeout: cfg.DeliveryTimeout,
		maxAttempts:     cfg.DeliveryMaxAttempts,
		retryBackoff:    cfg.DeliveryRetryBackoff,
		notify:          make(chan struct{}, 1),
		notBefore:       make(map[int64]time.Time),
	}
}

// Notify 请求调度器尽快重读待投递集合，从不阻塞调用方
func (s *ReminderScheduler) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run 主循环。启动时先重建视图并补投过期提醒，之后按最近到期睡眠，
// 轮询间隔兜底外部通知丢失的情况。ctx 取消后干净退出。
func (s *ReminderScheduler) Run(ctx context.Context) error {
	if err := s.resync(ctx); err != nil {
		return fmt.Errorf("initial resync failed: %w", err)
	}
	s.deliverDue(ctx)

	timer := time.NewTimer(s.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Reminder scheduler stopping")
			return nil

		case <-s.notify:
			if err := s.resync(ctx); err != nil {
				s.log.Error("Resync after notify failed", zap.Error(err))
			}

		case <-timer.C:
			// 轮询兜底：即使没人通知也定期对齐存储层
			if err := s.resync(ctx); err != nil {
				s.log.Error("Periodic resync failed", zap.Error(err))
			}
		}

		s.deliverDue(ctx)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.nextWait())
	}
}

// nextWait 距最近到期的时长，上限为轮询间隔
func (s *ReminderScheduler) nextWait() time.Duration {
	wait := s.pollInterval
	if next := s.pending.peek(); next != nil {
		if d := time.Until(next.dueAt); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// resync 丢弃内存视图，按存储层待投递集合重建堆
func (s *ReminderScheduler) resync(ctx context.Context) error {
	reminders, err := s.store.ListPending(ctx, "")
	if err != nil {
		return err
	}

	alive := make(map[int64]struct{}, len(reminders))
	s.pending = s.pending[:0]
	for _, r := range reminders {
		alive[r.PublicID] = struct{}{}

		due := r.DueAt
		if nb, ok := s.notBefore[r.PublicID]; ok && nb.After(due) {
			due = nb
		}
		s.pending = append(s.pending, &entry{
			publicID: r.PublicID,
			chatID:   r.ChatID,
			message:  r.Message,
			dueAt:    due,
			timezone: r.Timezone,
		})
	}
	heap.Init(&s.pending)

	for id := range s.notBefore {
		if _, ok := alive[id]; !ok {
			delete(s.notBefore, id)
		}
	}
	return nil
}

// deliverDue 弹出所有已到期的提醒并逐条投递
func (s *ReminderScheduler) deliverDue(ctx context.Context) {
	now := time.Now()
	for {
		next := s.pending.peek()
		if next == nil || next.dueAt.After(now) {
			return
		}
		if ctx.Err() != nil {
			return
		}

		e := heap.Pop(&s.pending).(*entry)
		s.deliver(ctx, e)
	}
}

// deliver 投递一条提醒。弹出后先回读权威状态，取消的直接丢弃。
func (s *ReminderScheduler) deliver(ctx context.Context, e *entry) {
	current, err := s.store.Get(ctx, e.publicID)
	if err != nil {
		if err == pkgerrors.ReminderNotFound {
			delete(s.notBefore, e.publicID)
			return
		}
		s.log.Error("Failed to reload reminder before delivery",
			zap.Int64("public_id", e.publicID),
			zap.Error(err),
		)
		s.requeue(e, time.Now().Add(s.retryBackoff))
		return
	}
	if current.Terminal() {
		delete(s.notBefore, e.publicID)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	err = s.sender.SendMessage(sendCtx, e.chatID, deliveryText(e.message))
	cancel()

	if err == nil {
		fired, err := s.store.MarkFired(ctx, e.publicID, time.Now())
		if err != nil {
			s.log.Error("Failed to mark reminder fired",
				zap.Int64("public_id", e.publicID),
				zap.Error(err),
			)
		} else if fired {
			s.log.Info("Reminder delivered",
				zap.Int64("public_id", e.publicID),
				zap.String("chat_id", e.chatID),
			)
		}
		delete(s.notBefore, e.publicID)
		return
	}

	s.log.Warn("Reminder delivery failed",
		zap.Int64("public_id", e.publicID),
		zap.String("chat_id", e.chatID),
		zap.Error(err),
	)

	attempts, aerr := s.store.IncrementAttempt(ctx, e.publicID)
	if aerr != nil {
		// 多半是状态已被别处改掉，丢弃即可
		delete(s.notBefore, e.publicID)
		return
	}

	if attempts >= s.maxAttempts {
		if _, err := s.store.MarkFailed(ctx, e.publicID); err != nil {
			s.log.Error("Failed to mark reminder failed",
				zap.Int64("public_id", e.publicID),
				zap.Error(err),
			)
		}
		s.log.Error("Reminder delivery gave up",
			zap.Int64("public_id", e.publicID),
			zap.Int("attempts", attempts),
		)
		delete(s.notBefore, e.publicID)
		return
	}

	s.requeue(e, time.Now().Add(s.retryBackoff))
}

func (s *ReminderScheduler) requeue(e *entry, at time.Time) {
	s.notBefore[e.publicID] = at
	e.dueAt = at
	heap.Push(&s.pending, e)
}

func deliveryText(message string) string {
	return "⏰ 提醒：" + message
}
